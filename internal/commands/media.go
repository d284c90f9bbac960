package commands

import (
	"context"
	"fmt"
	"strings"

	"shadowbot/internal/bot"
)

func mediaSpecs(d Deps) []bot.Spec {
	return []bot.Spec{
		{Name: "song", Level: bot.LevelNone, Help: "Download a song: song <name>", Fn: songHandler(d)},
		{Name: "movie", Level: bot.LevelNone, Help: "Find a movie: movie <title>", Fn: movieHandler(d)},
		{Name: "edit", Level: bot.LevelNone, Help: "Edit an attached image: edit <effect>", Fn: editHandler(d)},
	}
}

func songHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Args) == 0 {
			return &bot.Result{Text: "Usage: song <name>"}, nil
		}
		query := strings.Join(inv.Args, " ")
		p, err := d.Media.DownloadSong(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("download song %q: %w", query, err)
		}
		return &bot.Result{
			Text:  fmt.Sprintf("🎵 %s", query),
			Media: &bot.MediaPayload{MIME: p.MIME, Filename: p.Filename, Data: p.Data},
		}, nil
	}
}

func movieHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Args) == 0 {
			return &bot.Result{Text: "Usage: movie <title>"}, nil
		}
		query := strings.Join(inv.Args, " ")
		info, err := d.Media.FindMovie(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("find movie %q: %w", query, err)
		}
		if info == nil {
			return &bot.Result{Text: fmt.Sprintf("No results for %q.", query)}, nil
		}
		return &bot.Result{Text: fmt.Sprintf(
			"🎬 *%s* (%d)\n%s", info.Title, info.Year, info.DownloadLink,
		)}, nil
	}
}

func editHandler(d Deps) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) (*bot.Result, error) {
		if len(inv.Media) == 0 {
			return &bot.Result{Text: "Attach an image to the edit command."}, nil
		}
		effect := "enhance"
		if len(inv.Args) > 0 {
			effect = strings.ToLower(inv.Args[0])
		}
		p, err := d.Media.EditImage(ctx, inv.Media, effect)
		if err != nil {
			return nil, fmt.Errorf("edit image (%s): %w", effect, err)
		}
		return &bot.Result{Media: &bot.MediaPayload{
			MIME:     p.MIME,
			Filename: p.Filename,
			Data:     p.Data,
		}}, nil
	}
}
