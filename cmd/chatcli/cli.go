package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/coursechat/pkg/broadcast"
	"github.com/dmitrymomot/coursechat/pkg/chatclient"
	"github.com/dmitrymomot/coursechat/pkg/logger"
	"github.com/dmitrymomot/coursechat/pkg/messages"
)

// Config is read from the environment.
type Config struct {
	BaseURL     string        `env:"CHAT_BASE_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	Room        string        `env:"CHAT_ROOM,required" validate:"required"`
	UserID      string        `env:"CHAT_USER_ID,required" validate:"required"`
	BaseDelay   time.Duration `env:"CHAT_RECONNECT_BASE_DELAY" envDefault:"1s"`
	MaxAttempts int           `env:"CHAT_RECONNECT_MAX_ATTEMPTS" envDefault:"5"`
	History     int           `env:"CHAT_HISTORY" envDefault:"50"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"warn"`
}

// printer serializes output from handlers and the input loop.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) message(m messages.Message) {
	p.printf("[%s] %s <%s> %s", m.ID, m.CreatedAt.Local().Format(time.TimeOnly), m.AuthorID, m.Content)
}

func run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, log *slog.Logger) error {
	p := &printer{out: out}

	client, err := chatclient.New(chatclient.Config{
		BaseURL:     cfg.BaseURL,
		Room:        cfg.Room,
		UserID:      cfg.UserID,
		BaseDelay:   cfg.BaseDelay,
		MaxAttempts: cfg.MaxAttempts,
	}, chatclient.Handlers{
		OnConnected:    func() { p.printf("* connected to %s as %s", cfg.Room, cfg.UserID) },
		OnDisconnected: func(err error) { p.printf("* connection lost: %v", err) },
		OnMessage:      p.message,
		OnDelete:       func(id string) { p.printf("* message %s was deleted", id) },
		OnExhausted: func(err error) {
			p.printf("* giving up reconnecting (%v); type /reconnect to try again", err)
		},
	}, chatclient.WithLogger(log))
	if err != nil {
		return err
	}
	defer client.Disconnect()

	api := client.Messages()
	history, err := api.List(ctx, cfg.Room, cfg.UserID, messages.ListOptions{Limit: cfg.History})
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	for _, m := range history {
		client.Remember(m.ID)
		p.message(m)
	}

	if err := client.Connect(ctx); err != nil {
		log.WarnContext(ctx, "initial connect failed, retrying in background", logger.Error(err))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(ctx, client, api, cfg, p, strings.TrimSpace(line))
			if err != nil {
				p.printf("! %v", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, client *chatclient.Client, api *chatclient.MessagesAPI, cfg Config, p *printer, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "":
		return false, nil

	case "/quit":
		return true, nil

	case "/online":
		n, err := client.Online(ctx)
		if err != nil {
			return false, err
		}
		p.printf("* %d online in %s", n, cfg.Room)

	case "/reconnect":
		return false, client.Connect(ctx)

	case "/delete":
		id := strings.TrimSpace(arg)
		if id == "" {
			return false, fmt.Errorf("usage: /delete <id>")
		}
		if err := api.Delete(ctx, cfg.Room, id, cfg.UserID); err != nil {
			return false, err
		}
		if err := client.SendBroadcast(ctx, broadcast.EventDelete, broadcast.DeletePayload{ID: id}); err != nil {
			return false, err
		}
		p.printf("* deleted %s", id)

	default:
		msg, err := api.Create(ctx, cfg.Room, chatclient.CreateMessage{AuthorID: cfg.UserID, Content: line})
		if err != nil {
			return false, err
		}
		client.Remember(msg.ID)
		p.message(msg)
		if err := client.SendBroadcast(ctx, broadcast.EventMessage, msg); err != nil {
			return false, fmt.Errorf("message saved but not delivered: %w", err)
		}
	}
	return false, nil
}
