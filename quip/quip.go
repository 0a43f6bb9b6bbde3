// Package quip draws the daily fortune shown on the home page.
package quip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"google.golang.org/genai"
)

// Fallback is shown whenever no fortune can be generated.
const Fallback = "今日大吉！彩虹巫女能量爆棚中！🌈"

const prompt = `你是一位可愛的彩虹巫女，正在幫一群去日本旅行的好朋友抽今日運勢籤。
請用繁體中文寫一句今日運勢，30 字以內，語氣活潑溫暖，結尾加一個表情符號。只回覆運勢本身。`

type Generator interface {
	DailyQuip(ctx context.Context) (string, error)
}

var ErrEmptyQuip = errors.New("generator returned an empty quip")

// Gemini asks a Gemini model for the fortune.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) DailyQuip(ctx context.Context) (string, error) {
	temperature := float32(1.0)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generating quip: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyQuip
	}
	return text, nil
}

// Daily keeps one quip per local day. It never fails: when the generator is
// missing or errors, the fallback is returned and the generator is left alone
// until the back-off window has passed.
type Daily struct {
	gen     Generator
	loc     *time.Location
	timeout time.Duration
	backoff time.Duration
	now     func() time.Time

	mu         sync.Mutex
	day        string
	quip       string
	retryAfter time.Time

	cron *cron.Cron
}

func NewDaily(gen Generator, loc *time.Location) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	return &Daily{gen: gen, loc: loc, timeout: 10 * time.Second, backoff: 5 * time.Minute, now: time.Now}
}

func (d *Daily) today() string {
	return d.now().In(d.loc).Format(time.DateOnly)
}

// DailyQuip implements Generator with the fallback applied.
func (d *Daily) DailyQuip(ctx context.Context) (string, error) {
	return d.Quip(ctx), nil
}

func (d *Daily) Quip(ctx context.Context) string {
	d.mu.Lock()
	today := d.today()
	if d.day == today && d.quip != "" {
		q := d.quip
		d.mu.Unlock()
		return q
	}
	if d.now().Before(d.retryAfter) {
		d.mu.Unlock()
		return Fallback
	}
	d.mu.Unlock()
	return d.generate(ctx, today)
}

// Refresh draws a new quip for today, replacing the cached one.
func (d *Daily) Refresh(ctx context.Context) string {
	d.mu.Lock()
	today := d.today()
	d.mu.Unlock()
	return d.generate(ctx, today)
}

// generate runs without holding mu so page renders never wait on the model.
func (d *Daily) generate(ctx context.Context, today string) string {
	if d.gen == nil {
		return Fallback
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	q, err := d.gen.DailyQuip(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.retryAfter = d.now().Add(d.backoff)
		slog.Warn("quip generation failed, using fallback", "error", err, "retry_after", d.retryAfter)
		return Fallback
	}
	d.day, d.quip, d.retryAfter = today, q, time.Time{}
	return q
}

// Start refreshes the quip every day at local midnight.
func (d *Daily) Start() error {
	c := cron.New(cron.WithLocation(d.loc))
	_, err := c.AddFunc("0 0 * * *", func() {
		q := d.Refresh(context.Background())
		slog.Info("daily quip refreshed", "quip", q)
	})
	if err != nil {
		return fmt.Errorf("scheduling quip refresh: %w", err)
	}
	c.Start()
	d.cron = c
	return nil
}

func (d *Daily) Stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
}
