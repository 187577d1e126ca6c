package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"

	"stroke-quiz/entities/canvas"
	"stroke-quiz/entities/grader"
	"stroke-quiz/tools/exporter"
	"stroke-quiz/tools/fonts"
	"stroke-quiz/tools/llm"
	"stroke-quiz/tools/logger"
	"stroke-quiz/tools/proxy"
	"stroke-quiz/tools/sound"
)

func main() {
	// CLI flags
	mode := flag.String("mode", "serve", "serve, play or render")
	addr := flag.String("addr", ":3000", "Listen address (serve mode)")
	apiKey := flag.String("key", "", "Anthropic API key (or set ANTHROPIC_API_KEY env)")
	model := flag.String("model", "claude-sonnet-4-5", "Model used for grading")
	proxyURL := flag.String("proxy", "", "Grade through this proxy endpoint instead of calling Anthropic directly")
	fontPath := flag.String("font", "", "Component font file (falls back to an installed CJK font, then Go Regular)")
	fontSize := flag.Float64("font-size", fonts.DefaultSize, "Glyph size in points")
	outputDir := flag.String("output", "./output", "Output directory for snapshots")
	deckPath := flag.String("deck", "", "JSON deck file (defaults to the built-in deck)")
	seed := flag.Uint64("seed", 0, "Reveal order seed (0 = random)")
	maxSessions := flag.Int("max-sessions", DefaultMaxSessions, "Sessions kept in memory before the least recently used is evicted (serve mode)")
	sessionTTL := flag.Duration("session-ttl", DefaultIdleTTL, "Drop sessions idle for this long (serve mode)")
	verbose := flag.Bool("v", false, "Verbose logging")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides -v)")

	// render mode
	character := flag.String("character", "", "Character to render")
	components := flag.String("components", "", "Comma-separated components to render")
	stage := flag.Int("stage", 0, "Stage to render")
	outName := flag.String("o", "", "Output file name without extension (render mode)")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, usageFooter)
	}

	flag.Parse()

	// Get API key
	key := *apiKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}

	level := logger.LevelInfo
	if *verbose {
		level = logger.LevelDebug
	}
	if *logLevel != "" {
		l, err := logger.ParseLevel(*logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		level = l
	}

	config := QuizConfig{
		Addr:           *addr,
		AnthropicKey:   key,
		Model:          *model,
		ProxyURL:       *proxyURL,
		FontPath:       *fontPath,
		FontSize:       *fontSize,
		OutputDir:      *outputDir,
		DeckPath:       *deckPath,
		Seed:           *seed,
		MaxSessions:    *maxSessions,
		SessionTTL:     *sessionTTL,
		VerboseLogging: level == logger.LevelDebug,
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	var err error
	switch *mode {
	case "serve":
		err = serve(ctx, config, logger.New(os.Stdout, level, "quiz"))
	case "play":
		err = play(ctx, config, level)
	case "render":
		comps := splitComponents(*components)
		err = render(config, *character, comps, *stage, *outName, logger.New(os.Stdout, level, "render"))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every mode shares.
type app struct {
	config   QuizConfig
	deck     []Character
	font     *fonts.Font
	grader   *grader.Grader
	exporter *exporter.Exporter
	log      *logger.Logger
	sessions atomic.Uint64
}

func newApp(config QuizConfig, log *logger.Logger) (*app, error) {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.FontSize <= 0 {
		config.FontSize = fonts.DefaultSize
	}

	gg.SetLogger(log.WithPrefix("gg").Slog())

	deck := DefaultDeck
	if config.DeckPath != "" {
		d, err := LoadDeck(config.DeckPath)
		if err != nil {
			return nil, err
		}
		deck = d
	}

	font, err := fonts.Load(config.FontPath, config.FontSize, log)
	if err != nil {
		return nil, err
	}
	deck, err = selectDeck(deck, config.DeckPath != "", font, log)
	if err != nil {
		font.Close()
		return nil, err
	}

	exp, err := exporter.New(config.OutputDir)
	if err != nil {
		font.Close()
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	a := &app{config: config, deck: deck, font: font, exporter: exp, log: log}

	// Initialize grader
	switch {
	case config.ProxyURL != "":
		a.grader = grader.New(llm.NewAnthropicClient("", config.Model, llm.WithEndpoint(config.ProxyURL)), log)
		log.Info("Grading through %s", config.ProxyURL)
	case config.AnthropicKey != "":
		a.grader = grader.New(llm.NewAnthropicClient(config.AnthropicKey, config.Model), log)
	default:
		log.Warn("No API key or proxy: answers will not be graded")
	}

	return a, nil
}

// selectDeck makes sure font can draw every component of deck. A built-in
// deck the font cannot draw is swapped for OverlayDeck; a custom one is an
// error.
func selectDeck(deck []Character, custom bool, font *fonts.Font, log *logger.Logger) ([]Character, error) {
	missing := uncovered(deck, font)
	if len(missing) == 0 {
		return deck, nil
	}
	if custom {
		return nil, fmt.Errorf("font %s has no glyphs for deck components %s (use -font)",
			font.Name(), strings.Join(missing, " "))
	}
	log.Warn("Font %s cannot draw %s; using the overlay deck. Pass -font with a CJK font for the kanji deck.",
		font.Name(), strings.Join(missing, " "))
	if missing := uncovered(OverlayDeck, font); len(missing) > 0 {
		return nil, fmt.Errorf("font %s cannot draw the overlay deck either: %s", font.Name(), strings.Join(missing, " "))
	}
	return OverlayDeck, nil
}

// uncovered returns the distinct components of deck that font has no
// glyphs for, capped at a handful for messages.
func uncovered(deck []Character, font *fonts.Font) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, c := range deck {
		for _, comp := range c.Components {
			if seen[comp] || font.Covers(comp) {
				continue
			}
			seen[comp] = true
			if len(missing) < 8 {
				missing = append(missing, comp)
			}
		}
	}
	return missing
}

func (a *app) close() {
	a.font.Close()
}

// rand returns a reveal order source for one session.
func (a *app) rand() *rand.Rand {
	if a.config.Seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(a.config.Seed, a.sessions.Add(1)))
}

func (a *app) newQuiz(id string) (*Quiz, error) {
	return NewQuiz(id, a.deck, QuizDeps{
		Face:     a.font.Face(),
		Grader:   a.grader,
		Exporter: a.exporter,
		Rand:     a.rand(),
		Log:      a.log,
	})
}

func serve(ctx context.Context, config QuizConfig, log *logger.Logger) error {
	a, err := newApp(config, log)
	if err != nil {
		return err
	}
	defer a.close()

	if config.AnthropicKey == "" {
		log.Warn("ANTHROPIC_API_KEY is not set: /api/anthropic will fail upstream")
	}
	upstream := llm.NewAnthropicClient(config.AnthropicKey, config.Model)
	srv := NewServer(proxy.New(upstream, log), a.newQuiz, ServerOptions{
		MaxSessions: config.MaxSessions,
		IdleTTL:     config.SessionTTL,
	}, log)
	go srv.Run(ctx)

	httpServer := &http.Server{
		Addr:              config.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", config.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func play(ctx context.Context, config QuizConfig, level logger.Level) error {
	// the screen owns stdout, so logs go to a file
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	logPath := filepath.Join(config.OutputDir, "play.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	log := logger.New(logFile, level, "quiz")

	a, err := newApp(config, log)
	if err != nil {
		return err
	}
	defer a.close()

	q, err := a.newQuiz("play")
	if err != nil {
		return err
	}

	snd := sound.New()
	if err := snd.Init(); err != nil {
		log.Warn("Audio disabled: %v", err)
	}
	defer snd.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	return NewPlayer(screen, q, snd, log).Run(ctx)
}

func render(config QuizConfig, character string, components []string, stage int, name string, log *logger.Logger) error {
	if len(components) == 0 {
		return fmt.Errorf("render needs -components")
	}
	if name == "" {
		name = sanitize(character)
		if character == "" {
			name = "render"
		}
		name = fmt.Sprintf("%s_stage%d", name, stage)
	}

	a, err := newApp(config, log)
	if err != nil {
		return err
	}
	defer a.close()

	c := canvas.New(canvas.Options{Rand: a.rand()}, log)
	c.Update(canvas.Props{Stage: stage, Character: character, Components: components})
	c.SetFace(a.font.Face())
	log.Stage(character, stage, len(c.Visible()))

	opts := exporter.DefaultOptions()
	opts.Flatten = nil
	res, err := a.exporter.ExportWithOptions(c.Surface(), name, opts)
	if err != nil {
		return err
	}
	log.Export(res.Path, res.Bytes)
	return nil
}

func splitComponents(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
