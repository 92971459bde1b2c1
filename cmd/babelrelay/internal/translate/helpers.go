package translate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal"
	"github.com/tinyland-inc/babelrelay/pkg/logger"
	"github.com/tinyland-inc/babelrelay/pkg/providers"
	"github.com/tinyland-inc/babelrelay/pkg/routing"
	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

// Translator is the part of translate.Gateway the command uses.
type Translator interface {
	Translate(ctx context.Context, sourceLanguage, destLanguage, text string) (string, error)
}

func translateCmd(opts translateOptions) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if opts.debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}
	if opts.provider != "" {
		cfg.Translation.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.Translation.Model = opts.model
	}

	gw, err := providers.NewGateway(cfg)
	if err != nil {
		return fmt.Errorf("error creating provider: %w", err)
	}

	s := &session{translator: gw, from: opts.from, to: opts.to, out: os.Stdout}

	if opts.message != "" {
		result, err := s.translate(context.Background(), opts.message)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s %s\n", internal.Logo, result)
		return nil
	}

	fmt.Printf("%s Interactive mode, translating into %s (Ctrl+C to exit, /to <language> to switch)\n\n",
		internal.Logo, routing.LanguageName(s.to))
	interactiveMode(s)

	return nil
}

type session struct {
	translator Translator
	from       string
	to         string
	out        io.Writer
}

func (s *session) translate(ctx context.Context, text string) (string, error) {
	result, err := s.translator.Translate(ctx, s.from, s.to, text)
	if errors.Is(err, translate.ErrModerationRejected) {
		return "", errors.New("message rejected by moderation")
	}
	if err != nil {
		return "", fmt.Errorf("error translating: %w", err)
	}
	return result, nil
}

// handle processes one input line and reports whether the loop should stop.
func (s *session) handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	if input == "exit" || input == "quit" {
		fmt.Fprintln(s.out, "Goodbye!")
		return true
	}

	if lang, ok := strings.CutPrefix(input, "/to"); ok && (lang == "" || lang[0] == ' ') {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			fmt.Fprintf(s.out, "Translating into %s\n\n", routing.LanguageName(s.to))
			return false
		}
		s.to = lang
		fmt.Fprintf(s.out, "Now translating into %s\n\n", routing.LanguageName(s.to))
		return false
	}

	result, err := s.translate(ctx, input)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}
	fmt.Fprintf(s.out, "\n%s %s\n\n", internal.Logo, result)
	return false
}

func interactiveMode(s *session) {
	prompt := fmt.Sprintf("%s Text: ", internal.Logo)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".babelrelay_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(s, os.Stdin)
		return
	}
	defer rl.Close()

	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if s.handle(ctx, line) {
			return
		}
	}
}

func simpleInteractiveMode(s *session, in io.Reader) {
	reader := bufio.NewReader(in)
	ctx := context.Background()
	for {
		fmt.Fprintf(s.out, "%s Text: ", internal.Logo)
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if strings.TrimSpace(line) != "" {
					s.handle(ctx, line)
				}
				fmt.Fprintln(s.out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(s.out, "Error reading input: %v\n", err)
			continue
		}
		if s.handle(ctx, line) {
			return
		}
	}
}
