package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lunest-run/lunest/internal/childproc"
	"github.com/lunest-run/lunest/internal/config"
	"github.com/lunest-run/lunest/internal/discovery"
	"github.com/lunest-run/lunest/internal/protocol"
	"github.com/lunest-run/lunest/internal/renderer"
	"github.com/lunest-run/lunest/internal/runtimecache"
	"github.com/lunest-run/lunest/internal/workspace"
)

// Result is one test's outcome, as recorded by the Driver for the final
// summary.
type Result struct {
	Title []string
	Error *protocol.TestError
}

// ProfileSummary is the per-profile tally the Driver reports between
// profiles and folds into the overall exit code.
type ProfileSummary struct {
	Profile *config.Profile
	Results []Result
	Failed  bool // set on a fatal IO/protocol/exit error, independent of Results
}

func (s ProfileSummary) successCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Error == nil {
			n++
		}
	}
	return n
}

func (s ProfileSummary) errorCount() int {
	return len(s.Results) - s.successCount()
}

// Run executes each profile in order: discover targets, spawn a child, send
// the init/list/run/finish sequence, stream Output to r, and accumulate a
// ProfileSummary. It returns the process exit code: ExitFailure iff any
// profile had any test failure or hit a fatal error (discovery, spawn,
// protocol, or an abnormal child exit).
func Run(ctx context.Context, profiles []*config.Profile, rootDir string, keepTmpDir bool, r *renderer.Renderer) (ExitCode, error) {
	ws, err := workspace.New(keepTmpDir)
	if err != nil {
		return ExitFailure, NewError("create temp workspace", err)
	}
	defer ws.Close()

	cache := runtimecache.New(ws.Root())

	overall := ExitSuccess
	for i, profile := range profiles {
		if i > 0 {
			r.Separator()
		}

		summary, err := runProfile(ctx, profile, rootDir, ws, cache, r)
		if err != nil {
			slog.Error("profile failed", "profile", profile.Name, "err", err)
			overall = ExitFailure
			continue
		}

		r.Summary(summary.successCount(), summary.errorCount())
		if summary.Failed || summary.errorCount() > 0 {
			overall = ExitFailure
		}
	}

	return overall, nil
}

func runProfile(ctx context.Context, profile *config.Profile, rootDir string, ws *workspace.TempWorkspace, cache *runtimecache.Cache, r *renderer.Renderer) (*ProfileSummary, error) {
	ignorer, err := discovery.LoadLunestIgnore(rootDir)
	if err != nil {
		return nil, fmt.Errorf("load .lunestignore: %w", err)
	}

	targets, err := discovery.NewWalker().Walk(discovery.Options{
		Root:          rootDir,
		IncludeGlobs:  profile.IncludeGlobs,
		ExcludeGlobs:  profile.ExcludeGlobs,
		InitScriptAbs: profile.InitScript,
		Ignorer:       ignorer,
	})
	if err != nil {
		return nil, fmt.Errorf("discover target files: %w", err)
	}

	interpreterCmd, err := resolveInterpreter(cache, profile.InterpreterCmd)
	if err != nil {
		return nil, fmt.Errorf("resolve interpreter: %w", err)
	}

	dirs, err := ws.NewChildDir()
	if err != nil {
		return nil, fmt.Errorf("allocate child scratch dir: %w", err)
	}

	proc, err := childproc.Spawn(ctx, interpreterCmd, ws.BootstrapPath(), rootDir, dirs)
	if err != nil {
		return nil, fmt.Errorf("spawn child: %w", err)
	}
	defer proc.Close()

	targetFiles := make([]protocol.TargetFile, len(targets))
	for i, tf := range targets {
		targetFiles[i] = protocol.TargetFile{AbsPath: tf.AbsPath, RelName: tf.RelName}
	}

	if err := proc.Send(protocol.NewInitialize(rootDir, targetFiles, defaultTermWidth)); err != nil {
		return nil, fmt.Errorf("send Initialize: %w", err)
	}

	if profile.InitScript != "" {
		if err := proc.Send(protocol.NewExecute(profile.InitScript)); err != nil {
			return nil, fmt.Errorf("send Execute(init): %w", err)
		}
	}

	ids, err := listTests(ctx, proc)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	r.TestCount(len(ids))

	if err := proc.Send(protocol.NewRun(protocol.ModeRun, ids)); err != nil {
		return nil, fmt.Errorf("send Run: %w", err)
	}
	if err := proc.Send(protocol.NewFinish()); err != nil {
		return nil, fmt.Errorf("send Finish: %w", err)
	}

	results, runErr := pollResults(ctx, proc, r)
	summary := &ProfileSummary{Profile: profile, Results: results}
	if runErr != nil {
		summary.Failed = true
		return summary, runErr
	}
	return summary, nil
}

// List runs the discover-only sequence per profile (Initialize -> Execute
// (init) -> Run{List} -> Finish), printing one line per discovered test via
// r. It never runs a test. It returns ExitSuccess unless a profile's listing
// fails (discovery, spawn, protocol, or an abnormal child exit); it then
// stops at that profile and returns ExitFailure with the error.
func List(ctx context.Context, profiles []*config.Profile, rootDir string, r *renderer.Renderer) (ExitCode, error) {
	ws, err := workspace.New(false)
	if err != nil {
		return ExitFailure, NewError("create temp workspace", err)
	}
	defer ws.Close()

	cache := runtimecache.New(ws.Root())

	for i, profile := range profiles {
		if i > 0 {
			r.Separator()
		}
		if err := listProfile(ctx, profile, rootDir, ws, cache, r); err != nil {
			return ExitFailure, err
		}
	}
	return ExitSuccess, nil
}

func listProfile(ctx context.Context, profile *config.Profile, rootDir string, ws *workspace.TempWorkspace, cache *runtimecache.Cache, r *renderer.Renderer) error {
	ignorer, err := discovery.LoadLunestIgnore(rootDir)
	if err != nil {
		return fmt.Errorf("load .lunestignore: %w", err)
	}
	targets, err := discovery.NewWalker().Walk(discovery.Options{
		Root:          rootDir,
		IncludeGlobs:  profile.IncludeGlobs,
		ExcludeGlobs:  profile.ExcludeGlobs,
		InitScriptAbs: profile.InitScript,
		Ignorer:       ignorer,
	})
	if err != nil {
		return fmt.Errorf("discover target files: %w", err)
	}

	interpreterCmd, err := resolveInterpreter(cache, profile.InterpreterCmd)
	if err != nil {
		return fmt.Errorf("resolve interpreter: %w", err)
	}

	dirs, err := ws.NewChildDir()
	if err != nil {
		return fmt.Errorf("allocate child scratch dir: %w", err)
	}

	proc, err := childproc.Spawn(ctx, interpreterCmd, ws.BootstrapPath(), rootDir, dirs)
	if err != nil {
		return fmt.Errorf("spawn child: %w", err)
	}
	defer proc.Close()

	targetFiles := make([]protocol.TargetFile, len(targets))
	for i, tf := range targets {
		targetFiles[i] = protocol.TargetFile{AbsPath: tf.AbsPath, RelName: tf.RelName}
	}

	if err := proc.Send(protocol.NewInitialize(rootDir, targetFiles, defaultTermWidth)); err != nil {
		return fmt.Errorf("send Initialize: %w", err)
	}
	if profile.InitScript != "" {
		if err := proc.Send(protocol.NewExecute(profile.InitScript)); err != nil {
			return fmt.Errorf("send Execute(init): %w", err)
		}
	}
	if err := proc.Send(protocol.NewRun(protocol.ModeList, nil)); err != nil {
		return fmt.Errorf("send Run: %w", err)
	}

	finishSent := false
	for {
		out, err := proc.Next(ctx)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		switch {
		case out.TestInfo != nil:
			r.TestInfo(out.TestInfo)
		case out.AllInputsRead != nil:
			if finishSent {
				continue
			}
			finishSent = true
			if err := proc.Send(protocol.NewFinish()); err != nil {
				return fmt.Errorf("send Finish: %w", err)
			}
		case out.Log != nil:
			r.Log(out.Log)
		}
	}
}

func resolveInterpreter(cache *runtimecache.Cache, interpreterCmd []string) ([]string, error) {
	resolved, err := cache.Resolve(interpreterCmd[0])
	if err != nil {
		return nil, err
	}
	out := append([]string{resolved}, interpreterCmd[1:]...)
	return out, nil
}

// listTests drives the Run{List} phase: collect every TestInfo id until
// AllInputsRead, then return to Initialized.
func listTests(ctx context.Context, proc *childproc.Process) ([]string, error) {
	if err := proc.Send(protocol.NewRun(protocol.ModeList, nil)); err != nil {
		return nil, err
	}

	// Non-nil even when discovery finds nothing: the id_filter sent for the
	// subsequent Run must be exactly this set, not the wire-level "no
	// filter" sentinel a nil slice would produce.
	ids := []string{}
	for {
		out, err := proc.Next(ctx)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, fmt.Errorf("child exited before completing discovery")
		}
		switch {
		case out.TestInfo != nil:
			ids = append(ids, out.TestInfo.ID)
		case out.AllInputsRead != nil:
			proc.ReturnToInitialized()
			return ids, nil
		case out.Log != nil:
			slog.Debug("child log", "text", out.Log.Text)
		default:
			return nil, fmt.Errorf("unexpected output during listing")
		}
	}
}

// pollResults drives the Run{Run} + Finish phase: forward TestStarted and
// TestFinished to the renderer, accumulate Results, and stop once the child
// has exited (cleanly or not).
func pollResults(ctx context.Context, proc *childproc.Process, r *renderer.Renderer) ([]Result, error) {
	var results []Result
	for {
		out, err := proc.Next(ctx)
		if err != nil {
			return results, err
		}
		if out == nil {
			return results, nil
		}
		switch {
		case out.TestStarted != nil:
			r.TestStarted(out.TestStarted)
		case out.TestFinished != nil:
			r.TestFinished(out.TestFinished)
			results = append(results, Result{Title: out.TestFinished.Title, Error: out.TestFinished.Error})
		case out.AllInputsRead != nil:
			// Emitted once more after Finish; the poll loop ends on child exit.
		case out.Log != nil:
			r.Log(out.Log)
		}
	}
}

const defaultTermWidth = 80
