// Command trainee is a terminal client for practicing client conversations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/subosito/gotenv"

	"github.com/satriahrh/client-talk/client"
	"github.com/satriahrh/client-talk/domain"
)

type repl struct {
	serverURL string
	api       *client.API
	session   *client.Session
	line      *liner.State

	watch       bool
	stopWatch   context.CancelFunc
	speakDir    string
	historyFile string
}

func main() {
	gotenv.Load()

	defaultURL := os.Getenv("TRAINER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	serverURL := flag.String("server", defaultURL, "training service base URL")
	watchEvents := flag.Bool("watch", false, "print live session events")
	speakDir := flag.String("speak-dir", "", "save client replies as mp3 files in this directory")
	flag.Parse()

	api := client.NewAPI(*serverURL)
	r := &repl{
		serverURL: *serverURL,
		api:       api,
		session:   client.NewSession(api),
		line:      liner.NewLiner(),
		watch:     *watchEvents,
		speakDir:  *speakDir,
	}
	r.line.SetCtrlCAborts(true)
	if dir, err := os.UserCacheDir(); err == nil {
		r.historyFile = filepath.Join(dir, "client-talk-history")
	}
	r.loadHistory()
	defer r.close()

	fmt.Println(titleStyle.Render("client-talk trainee"))
	fmt.Println(infoStyle.Render(helpText))
	r.run()
}

func (r *repl) run() {
	for {
		input, err := r.line.Prompt("> ")
		if err != nil {
			// Ctrl+C, Ctrl+D
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if r.session.Loading() {
			fmt.Println(warningStyle.Render("still waiting for the previous request"))
			continue
		}

		if cmd, ok := parseCommand(input); ok {
			if quit := r.handle(cmd); quit {
				return
			}
			continue
		}
		r.withInterrupt(func(ctx context.Context) { r.send(ctx, input) })
	}
}

// withInterrupt runs fn with a context that Ctrl+C cancels.
func (r *repl) withInterrupt(fn func(ctx context.Context)) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fn(ctx)
}

func (r *repl) handle(cmd command) (quit bool) {
	switch cmd.name {
	case "quit", "exit":
		return true
	case "help":
		fmt.Println(infoStyle.Render(helpText))
	case "categories":
		r.withInterrupt(r.categories)
	case "start":
		category, difficulty, err := parseStartArgs(cmd.args)
		if err != nil {
			fmt.Println(warningStyle.Render(err.Error()))
			return false
		}
		r.withInterrupt(func(ctx context.Context) { r.start(ctx, category, difficulty) })
	case "eval":
		if !r.session.CanEvaluate() {
			fmt.Println(warningStyle.Render(fmt.Sprintf("send at least %d messages first", client.MinEvaluationTurns)))
			return false
		}
		r.withInterrupt(r.evaluate)
	case "say":
		if len(cmd.args) != 1 {
			fmt.Println(warningStyle.Render("usage: /say <file>"))
			return false
		}
		r.withInterrupt(func(ctx context.Context) { r.say(ctx, cmd.args[0]) })
	case "abandon":
		if err := r.session.Abandon(); err != nil {
			fmt.Println(warningStyle.Render(err.Error()))
			return false
		}
		r.endWatch()
		fmt.Println(infoStyle.Render("session abandoned"))
	case "reset":
		r.endWatch()
		r.session.Reset()
		fmt.Println(infoStyle.Render("session cleared"))
	default:
		fmt.Println(warningStyle.Render("unknown command /" + cmd.name))
	}
	return false
}

func (r *repl) categories(ctx context.Context) {
	categories, err := r.api.Categories(ctx)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	for _, c := range categories {
		fmt.Printf("%s  %s\n", promptStyle.Render(string(c.ID)), c.NameJa)
		fmt.Println("    " + infoStyle.Render(c.Description))
	}
}

func (r *repl) start(ctx context.Context, category domain.Category, difficulty int) {
	r.endWatch()
	fmt.Println(infoStyle.Render("generating scenario..."))
	if err := r.session.Start(ctx, category, difficulty); err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}

	state := r.session.State()
	fmt.Println(renderScenario(state.Scenario))
	fmt.Println()
	for _, m := range state.Messages {
		fmt.Println(renderMessage(m))
	}
	if last := state.Messages[len(state.Messages)-1]; last.Role == domain.ClientRole {
		r.speak(ctx, state.SessionID, last)
	}

	if r.watch {
		watchCtx, cancel := context.WithCancel(context.Background())
		if err := watch(watchCtx, r.serverURL, r.session.WatchToken()); err != nil {
			cancel()
			fmt.Println(warningStyle.Render(err.Error()))
			return
		}
		r.stopWatch = cancel
	}
}

func (r *repl) send(ctx context.Context, text string) {
	state := r.session.State()
	if state == nil {
		fmt.Println(warningStyle.Render("no session; use /start"))
		return
	}
	if state.Status != domain.StatusInProgress {
		fmt.Println(warningStyle.Render("session is " + string(state.Status) + "; use /start or /reset"))
		return
	}

	result, err := r.session.Send(ctx, text)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	fmt.Println(renderMessage(result.ClientMessage))
	if len(result.Hints) > 0 {
		fmt.Println(renderHints(result.Hints))
	}
	r.speak(ctx, state.SessionID, result.ClientMessage)
}

func (r *repl) say(ctx context.Context, path string) {
	audio, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	text, err := r.api.Transcribe(ctx, audio)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	fmt.Println(renderMessage(domain.Message{Role: domain.UserRole, Content: text}))
	r.send(ctx, text)
}

func (r *repl) evaluate(ctx context.Context) {
	fmt.Println(infoStyle.Render("evaluating..."))
	evaluation, err := r.session.Evaluate(ctx)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	fmt.Print(renderMarkdown(evaluationMarkdown(evaluation)))
}

// speak saves the client's line as audio when -speak-dir is set.
func (r *repl) speak(ctx context.Context, sessionID string, m domain.Message) {
	if r.speakDir == "" {
		return
	}
	audio, err := r.api.Synthesize(ctx, m.Content)
	if err != nil {
		fmt.Println(warningStyle.Render("voice: " + err.Error()))
		return
	}
	if err := os.MkdirAll(r.speakDir, 0o755); err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	path := filepath.Join(r.speakDir, sessionID+"-"+m.ID+".mp3")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}
	fmt.Println(infoStyle.Render("♪ " + path))
}

func (r *repl) endWatch() {
	if r.stopWatch != nil {
		r.stopWatch()
		r.stopWatch = nil
	}
}

func (r *repl) loadHistory() {
	if r.historyFile == "" {
		return
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

func (r *repl) close() {
	r.endWatch()
	if r.historyFile != "" {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}
