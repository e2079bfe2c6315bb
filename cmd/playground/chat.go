package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/service/chat"
	"github.com/seu-repo/ai-playground/internal/service/voice"
)

const chatHelp = `commands:
  /attach <file>   chat with a .pdf, .txt or .md document
  /detach          back to plain chat
  /model <name>    switch model
  /resume <id>     continue a stored chat session
  /reset           start a new conversation
  /voice           open voice mode
  /quit            leave`

func runChat(ctx context.Context, a *app, args []string) error {
	fs := newFlags("chat", a.out)
	model := fs.String("model", a.cfg.Chat.Model, "chat model")
	session := fs.Int64("session", 0, "continue a stored chat session")
	doc := fs.String("attach", "", "document to chat with")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc := a.chatService()
	svc.SetModel(*model)
	if *session > 0 {
		if err := resumeChat(ctx, a, svc, *session); err != nil {
			return err
		}
	}
	if *doc != "" {
		if err := attach(ctx, a, svc, *doc); err != nil {
			return err
		}
	}

	// One-shot mode: remaining args are the message.
	if text := joinArgs(fs.Args()); text != "" {
		_, err := send(ctx, a, svc, text)
		return err
	}

	launcher := voice.NewLauncher(a.voiceController(&consoleNotifier{w: a.out}), a.log)
	fmt.Fprintln(a.out, "chatting with", *model+"; /help for commands")

	for {
		fmt.Fprint(a.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-a.in:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			send(ctx, a, svc, line)
			continue
		}

		name, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch name {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(a.out, chatHelp)
		case "/attach":
			if err := attach(ctx, a, svc, arg); err != nil {
				fmt.Fprintln(a.out, "!", domain.Describe(err))
			}
		case "/detach":
			svc.Detach()
			fmt.Fprintln(a.out, "document detached")
		case "/model":
			if arg == "" {
				fmt.Fprintln(a.out, "usage: /model <name>")
				continue
			}
			svc.SetModel(arg)
		case "/resume":
			id, err := parseID(arg)
			if err != nil {
				fmt.Fprintln(a.out, "usage: /resume <id>")
				continue
			}
			if err := resumeChat(ctx, a, svc, id); err != nil {
				fmt.Fprintln(a.out, "!", domain.Describe(err))
			}
		case "/reset":
			svc.Reset()
			fmt.Fprintln(a.out, "new conversation")
		case "/voice":
			if err := voiceLoop(ctx, a, launcher, nil); err != nil {
				fmt.Fprintln(a.out, "!", domain.Describe(err))
			}
		default:
			fmt.Fprintln(a.out, "unknown command; /help lists them")
		}
	}
}

func send(ctx context.Context, a *app, svc *chat.Service, text string) (domain.ChatMessage, error) {
	p := &streamPrinter{w: a.out}
	msg, err := svc.Send(ctx, text, p.update)
	p.done()
	return msg, err
}

func attach(ctx context.Context, a *app, svc *chat.Service, path string) error {
	if path == "" {
		return fmt.Errorf("usage: /attach <file>")
	}
	doc, err := svc.Attach(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "attached %s (%s)\n", doc.DisplayName, doc.ID)
	return nil
}

func resumeChat(ctx context.Context, a *app, svc *chat.Service, id int64) error {
	h, err := svc.Resume(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "resumed %q (%d messages)\n", h.Session.Title, len(h.Messages))
	for _, m := range h.Messages {
		fmt.Fprintf(a.out, "%s: %s\n", m.Role, m.Content)
	}
	return nil
}
