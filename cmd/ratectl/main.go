// Command ratectl rates a piece of text from a file or stdin for a user
// and prints the result as JSON. With -save the rating is stored in the
// user's history (the user needs a storage overlay, see -init-user).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jwillikers/content-rating/internal/bootstrap"
	"github.com/jwillikers/content-rating/internal/domain"
)

func main() {
	userID := flag.Int64("user", 0, "user id")
	mediaName := flag.String("type", "song", "content type: song, movie, book, website, document")
	title := flag.String("title", "", "content title (required with -save)")
	creator := flag.String("creator", "", "content creator")
	file := flag.String("file", "", "text file to rate; stdin when empty")
	save := flag.Bool("save", false, "store the rating in the user's history")
	initUser := flag.Bool("init-user", false, "create the user's storage overlay before rating")
	flag.Parse()

	if err := run(*userID, *mediaName, *title, *creator, *file, *save, *initUser); err != nil {
		fmt.Fprintln(os.Stderr, "ratectl:", err)
		os.Exit(1)
	}
}

func run(userID int64, mediaName, title, creator, file string, save, initUser bool) error {
	media, ok := domain.ParseContentType(mediaName)
	if !ok {
		return fmt.Errorf("unknown content type %q", mediaName)
	}
	if save && title == "" {
		return fmt.Errorf("-save requires -title")
	}

	text, err := readInput(file)
	if err != nil {
		return err
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if initUser {
		if err = app.Dictionary.CreateUserStorage(ctx, userID); err != nil {
			return fmt.Errorf("create user storage: %w", err)
		}
	}

	result, err := app.Rating.RateText(ctx, userID, text, media)
	if err != nil {
		return fmt.Errorf("rate text: %w", err)
	}

	if save {
		if _, err = app.Rating.SaveRating(ctx, userID, domain.Content{
			Title:   title,
			Creator: creator,
			Media:   media,
		}, result); err != nil {
			return fmt.Errorf("save rating: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readInput(file string) (string, error) {
	if file == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(data), nil
}
