// Command notechat-client joins the chat room of one note from a terminal.
// Lines typed on stdin are sent as chat messages; /quit leaves.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"notechat/internal/chatclient"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "notechat-client: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return exitConfig, fmt.Errorf("env file: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if !config.Colours {
		color.Disable()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := chatclient.NewController(chatclient.Options{
		Dialer:      &chatclient.WebSocketDialer{URL: config.URL, Token: config.Token},
		MaxAttempts: config.MaxAttempts,
		Backoff:     config.Backoff,
		Logger:      logs.GetLoggerFromString(config.LogLevel),
	})
	defer controller.Disconnect()

	color.Cyan.Printf("Connecting to %s ...\n", config.URL)
	if err := controller.Connect(ctx, config.NoteID, config.UserID); err != nil {
		color.Red.Println(controller.State().Error)
		return exitRuntime, err
	}

	go render(ctx, controller, config.UserID)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			color.Gray.Println("Leaving chat.")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				color.Gray.Println("Leaving chat.")
				return exitOK, nil
			}
			if strings.TrimSpace(line) == "/join" {
				_ = controller.Connect(ctx, config.NoteID, config.UserID)
				continue
			}
			// rejected sends surface through the state error
			_ = controller.Send(config.NoteID, line, config.UserID)
		}
	}
}

// render prints messages and errors as the controller state changes
func render(ctx context.Context, controller *chatclient.Controller, userID string) {
	printed := 0
	lastError := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-controller.Changes():
		}

		state := controller.State()
		if printed > len(state.Messages) {
			printed = 0
		}
		for _, m := range state.Messages[printed:] {
			ts := m.Timestamp.Format("15:04:05")
			switch {
			case m.System:
				color.New(color.BgBlack, color.FgGreen).Printf("[%s] %s\n", ts, m.Body)
			case m.Sender == userID:
				color.Gray.Printf("[%s] you: %s\n", ts, m.Body)
			default:
				color.Cyan.Printf("[%s] %s: ", ts, m.Sender)
				fmt.Println(m.Body)
			}
		}
		printed = len(state.Messages)

		if state.Error != "" && state.Error != lastError {
			color.Red.Println(state.Error)
		}
		lastError = state.Error
	}
}
