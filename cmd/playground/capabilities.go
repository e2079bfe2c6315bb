package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/seu-repo/ai-playground/internal/domain"
)

func runSTT(ctx context.Context, a *app, args []string) error {
	fs := newFlags("stt", a.out)
	mic := fs.Bool("mic", false, "record from the microphone instead of a file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc := a.speechService()

	var (
		t   *domain.Transcription
		err error
	)
	if *mic {
		stop := make(chan struct{})
		go func() {
			<-a.in
			close(stop)
		}()
		fmt.Fprintln(a.out, "recording, press Enter to stop")
		t, err = svc.Record(ctx, stop)
	} else {
		if fs.NArg() != 1 {
			return errors.New("usage: playground stt [-mic] <audio file>")
		}
		t, err = svc.Transcribe(ctx, fs.Arg(0))
	}
	if t != nil {
		fmt.Fprintln(a.out, t.Text)
		if err == nil && t.Language != "" {
			fmt.Fprintf(a.out, "(%s, %.0f%%)\n", t.Language, t.LanguageProbability*100)
		}
	}
	return err
}

func runTTS(ctx context.Context, a *app, args []string) error {
	fs := newFlags("tts", a.out)
	voiceName := fs.String("voice", a.cfg.Voice.Persona, "voice persona")
	speed := fs.Float64("speed", a.cfg.Voice.Speed, "speech speed")
	play := fs.Bool("play", false, "play the result")
	listVoices := fs.Bool("voices", false, "list available voices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc := a.speechService()

	if *listVoices {
		return printVoices(ctx, a)
	}

	text := joinArgs(fs.Args())
	path, err := svc.Synthesize(ctx, domain.SpeechRequest{Text: text, Voice: *voiceName, Speed: *speed})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, path)

	if !*play {
		return nil
	}
	ended := make(chan struct{})
	if err := svc.Play(ctx, path, func() { close(ended) }); err != nil {
		return err
	}
	select {
	case <-ended:
	case <-ctx.Done():
		svc.StopPlayback()
	}
	return nil
}

func runTranslate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("translate", a.out)
	to := fs.String("to", a.cfg.Chat.DefaultLanguage, "target language")
	if err := fs.Parse(args); err != nil {
		return err
	}

	out, err := a.translateService().Translate(ctx, joinArgs(fs.Args()), *to)
	if out != "" {
		fmt.Fprintln(a.out, out)
	}
	return err
}

func runVision(ctx context.Context, a *app, args []string) error {
	fs := newFlags("vision", a.out)
	prompt := fs.String("prompt", "", "question about the image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: playground vision [-prompt text] <image>")
	}

	out, err := a.visionService().Describe(ctx, fs.Arg(0), *prompt)
	if out != "" {
		fmt.Fprintln(a.out, out)
	}
	return err
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlags("history", a.out)
	show := fs.Int64("show", 0, "print a stored chat or voice session")
	del := fs.Int64("delete", 0, "delete an entry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: playground history [-show id | -delete id] <%s>", capabilityList())
	}
	capability, err := domain.ParseCapability(fs.Arg(0))
	if err != nil {
		return err
	}
	svc := a.historyService()

	switch {
	case *del > 0:
		if err := svc.Delete(ctx, capability, *del); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted %s %d\n", capability, *del)
		return nil
	case *show > 0:
		return showSession(ctx, a, capability, *show)
	}

	entries, err := svc.List(ctx, capability)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "no history")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, e := range entries {
		created := "-"
		if !e.CreatedAt.IsZero() {
			created = e.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.ID, created, e.Title)
	}
	return tw.Flush()
}

func showSession(ctx context.Context, a *app, capability domain.Capability, id int64) error {
	svc := a.historyService()
	switch capability {
	case domain.CapabilityVoice:
		s, err := svc.LoadVoiceSession(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (%d turns)\n", s.Title, len(s.Turns))
		for _, t := range s.Turns {
			fmt.Fprintf(a.out, "you: %s\nai:  %s\n", t.UserText, t.AIText)
		}
	case domain.CapabilityChat:
		h, err := svc.LoadChatSession(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (%d messages)\n", h.Session.Title, len(h.Messages))
		for _, m := range h.Messages {
			fmt.Fprintf(a.out, "%s: %s\n", m.Role, m.Content)
		}
	default:
		return fmt.Errorf("%s history has no session view", capability)
	}
	return nil
}

func runModels(ctx context.Context, a *app, args []string) error {
	fs := newFlags("models", a.out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	models, err := a.catalogService().Models(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "models:")
	for _, m := range models {
		marker := " "
		if m.Name == a.cfg.Chat.Model {
			marker = "*"
		}
		fmt.Fprintf(a.out, " %s %s\n", marker, m.Name)
	}
	return printVoices(ctx, a)
}

func printVoices(ctx context.Context, a *app) error {
	voices, err := a.catalogService().Voices(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "voices:")
	for _, v := range voices {
		fmt.Fprintf(a.out, "   %s\n", v)
	}
	return nil
}

func capabilityList() string {
	names := make([]string, len(domain.Capabilities))
	for i, c := range domain.Capabilities {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
