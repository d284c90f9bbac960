package commands

import (
	"context"
	"fmt"

	"shadowbot/internal/bot"
)

func entertainmentSpecs(d Deps) []bot.Spec {
	return []bot.Spec{
		{Name: "joke", Level: bot.LevelNone, Help: "Tell a joke", Fn: jokeHandler(d)},
		{Name: "quote", Level: bot.LevelNone, Help: "Share a quote", Fn: quoteHandler(d)},
		{Name: "fact", Level: bot.LevelNone, Help: "Share a random fact", Fn: factHandler(d)},
		{Name: "meme", Level: bot.LevelNone, Help: "Send a random meme", Fn: memeHandler(d)},
	}
}

func jokeHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		j := d.Tables.RandomJoke()
		if j.Setup == "" {
			return &bot.Result{Text: "I'm out of jokes today."}, nil
		}
		return &bot.Result{Text: fmt.Sprintf("%s\n\n%s 😄", j.Setup, j.Punchline)}, nil
	}
}

func quoteHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		q := d.Tables.RandomQuote()
		if q == "" {
			return &bot.Result{Text: "No quotes loaded."}, nil
		}
		return &bot.Result{Text: "💬 " + q}, nil
	}
}

func factHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		f := d.Tables.RandomFact()
		if f == "" {
			return &bot.Result{Text: "No facts loaded."}, nil
		}
		return &bot.Result{Text: "🧠 " + f}, nil
	}
}

func memeHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		p, err := d.Media.RandomMeme(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch meme: %w", err)
		}
		return &bot.Result{Media: &bot.MediaPayload{
			MIME:     p.MIME,
			Filename: p.Filename,
			Data:     p.Data,
		}}, nil
	}
}
