package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Pipeline is the black-box media boundary: download, transcode and image
// effects happen behind an external service; the bot only sees bytes or an
// error.
type Pipeline interface {
	DownloadSong(ctx context.Context, query string) (*Payload, error)
	FindMovie(ctx context.Context, query string) (*MovieInfo, error)
	EditImage(ctx context.Context, img []byte, effect string) (*Payload, error)
	RandomMeme(ctx context.Context) (*Payload, error)
}

type Payload struct {
	MIME     string
	Filename string
	Data     []byte
}

type MovieInfo struct {
	Title        string `json:"title"`
	Year         int    `json:"year"`
	DownloadLink string `json:"download_link"`
}

// Client calls the media service over HTTP. DryRun skips the network and
// returns canned payloads so the bot runs without the service.
type Client struct {
	BaseURL string
	APIKey  string
	DryRun  bool
	http    *http.Client
}

func NewClient(baseURL, apiKey string, dryRun bool) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		DryRun:  dryRun,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) DownloadSong(ctx context.Context, query string) (*Payload, error) {
	if c.DryRun {
		return &Payload{MIME: "audio/mpeg", Filename: "song.mp3", Data: []byte("dry-run")}, nil
	}
	u := fmt.Sprintf("%s/songs?q=%s", c.BaseURL, url.QueryEscape(query))
	data, mime, err := c.getBinary(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("download song: %w", err)
	}
	return &Payload{MIME: mime, Filename: "song.mp3", Data: data}, nil
}

func (c *Client) FindMovie(ctx context.Context, query string) (*MovieInfo, error) {
	if c.DryRun {
		return &MovieInfo{Title: query, Year: 2024, DownloadLink: "https://example.com/dry-run"}, nil
	}
	u := fmt.Sprintf("%s/movies?q=%s", c.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.auth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("find movie: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("find movie: status %d", resp.StatusCode)
	}
	var out struct {
		Results []MovieInfo `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("find movie: parse response: %w", err)
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	return &out.Results[0], nil
}

func (c *Client) EditImage(ctx context.Context, img []byte, effect string) (*Payload, error) {
	if c.DryRun {
		return &Payload{MIME: "image/jpeg", Filename: "edited.jpg", Data: img}, nil
	}
	u := fmt.Sprintf("%s/images/edit?effect=%s", c.BaseURL, url.QueryEscape(effect))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(img))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	c.auth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edit image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edit image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("edit image: read body: %w", err)
	}
	return &Payload{MIME: "image/jpeg", Filename: "edited.jpg", Data: data}, nil
}

func (c *Client) RandomMeme(ctx context.Context) (*Payload, error) {
	if c.DryRun {
		return &Payload{MIME: "image/jpeg", Filename: "meme.jpg", Data: []byte("dry-run")}, nil
	}
	data, mime, err := c.getBinary(ctx, c.BaseURL+"/memes/random")
	if err != nil {
		return nil, fmt.Errorf("random meme: %w", err)
	}
	return &Payload{MIME: mime, Filename: "meme.jpg", Data: data}, nil
}

func (c *Client) getBinary(ctx context.Context, u string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	c.auth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	return data, mime, nil
}

func (c *Client) auth(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
