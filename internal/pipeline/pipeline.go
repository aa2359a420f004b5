// Package pipeline sequences the four analysis stages over one manuscript
// and collects a run log. Completed stage payloads can be persisted and
// reloaded so a rerun skips the work already on disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"storyscope/internal/characters"
	"storyscope/internal/genre"
	"storyscope/internal/lexicon"
	"storyscope/internal/manuscript"
	"storyscope/internal/segment"
	"storyscope/internal/store"
	"storyscope/internal/structure"
)

// Stage names shared by persisted payloads and log lines.
const (
	StageSegmentation = "segmentation"
	StageStructure    = "structure"
	StageGenre        = "genre"
	StageCharacters   = "characters"
)

// Run statuses reported in RunStats.
const (
	StatusComplete = "COMPLETE"
	StatusFailed   = "FAILED"
)

// LogLine is one entry of a run's analysis log.
type LogLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// RunStats summarizes one pipeline invocation.
type RunStats struct {
	RunID         string   `json:"runId"`
	Source        string   `json:"source"`
	Status        string   `json:"status"`
	StartedAt     string   `json:"startedAt"`
	FinishedAt    string   `json:"finishedAt"`
	ResumedStages []string `json:"resumedStages"`
}

// Options configures a run. Stage options pass through unchanged except
// that a nil per-stage lexicon override is filled from Lexicons.
type Options struct {
	Title      string
	SourcePath string
	Segment    segment.Options
	Structure  structure.Options
	Genre      genre.Options
	Characters characters.Options
	Lexicons   *lexicon.Set
	Store      *store.Store
	Resume     bool
}

// Result bundles the stage outputs of one run.
type Result struct {
	RunID        string                `json:"runId"`
	Title        string                `json:"title"`
	Segmentation *segment.Segmentation `json:"segmentation"`
	Structure    *structure.Report     `json:"structure"`
	Genre        *genre.Result         `json:"genre"`
	Characters   *characters.Report    `json:"characters"`
	Stats        RunStats              `json:"stats"`
	Logs         []LogLine             `json:"logs"`
}

// Run segments the manuscript, then computes scene structure, genre and
// character tracking concurrently. Any stage error aborts the run.
func Run(ctx context.Context, doc *manuscript.Doc, opts Options) (*Result, error) {
	if doc == nil {
		return nil, errors.New("pipeline: manuscript is required")
	}
	started := time.Now()

	if opts.Lexicons != nil {
		if opts.Segment.Lexicons == nil {
			opts.Segment.Lexicons = opts.Lexicons
		}
		if opts.Structure.Lexicons == nil {
			opts.Structure.Lexicons = opts.Lexicons
		}
		if opts.Genre.Lexicons == nil {
			opts.Genre.Lexicons = opts.Lexicons
		}
		if opts.Characters.Lexicons == nil {
			opts.Characters.Lexicons = opts.Lexicons
		}
	}
	title := opts.Title
	if title == "" {
		title = doc.Title
	}
	if title == "" {
		title = "Untitled Manuscript"
	}
	if opts.Segment.Title == "" {
		opts.Segment.Title = title
	}

	res := &Result{Title: title, Logs: []LogLine{}}
	addLog := func(level, stage, message, detail string) {
		if os.Getenv("STORYSCOPE_TRACE") == "1" {
			fmt.Printf("%s [%s] [%s] %s | %s\n", time.Now().Format("15:04:05.000"), level, stage, message, detail)
		}
		res.Logs = append(res.Logs, LogLine{
			Time:    time.Now().Format("15:04:05.000"),
			Level:   level,
			Stage:   stage,
			Message: message,
			Detail:  detail,
		})
	}
	fail := func(stage string, err error) error {
		addLog("RISK", "PIPELINE", "Run aborted", stage+": "+err.Error())
		return fmt.Errorf("%s: %w", stage, err)
	}

	runID := "run-" + started.Format("20060102-150405.000")
	resumedSet := map[string]bool{}
	resumedList := []string{}
	markResumed := func(stage string) {
		resumedSet[stage] = true
		resumedList = append(resumedList, stage)
		addLog("INFO", "STORE", "Stage result loaded from previous run", stage)
	}

	if opts.Store != nil {
		var prev *store.Run
		if opts.Resume && opts.SourcePath != "" {
			p, err := opts.Store.LatestRun(opts.SourcePath)
			if err != nil {
				return nil, fail("store", err)
			}
			prev = p
		}
		if prev != nil {
			runID = prev.ID
			loadInto := func(stage string, out any) bool {
				found, err := opts.Store.LoadStage(runID, stage, out)
				if err != nil {
					addLog("RISK", "STORE", "Stored stage unreadable, recomputing", stage+": "+err.Error())
					return false
				}
				return found
			}
			var seg segment.Segmentation
			if loadInto(StageSegmentation, &seg) {
				res.Segmentation = &seg
				markResumed(StageSegmentation)
			}
			var str structure.Report
			if loadInto(StageStructure, &str) {
				res.Structure = &str
				markResumed(StageStructure)
			}
			var gen genre.Result
			if loadInto(StageGenre, &gen) {
				res.Genre = &gen
				markResumed(StageGenre)
			}
			var chars characters.Report
			if loadInto(StageCharacters, &chars) {
				res.Characters = &chars
				markResumed(StageCharacters)
			}
		} else {
			run, err := opts.Store.CreateRun(title, opts.SourcePath)
			if err != nil {
				return nil, fail("store", err)
			}
			runID = run.ID
		}
	}

	addLog("INFO", "BOOT", "Run started", fmt.Sprintf("id=%s title=%s", runID, title))

	if res.Segmentation == nil {
		seg, err := segment.Split(doc, opts.Segment)
		if err != nil {
			return nil, fail(StageSegmentation, err)
		}
		res.Segmentation = seg
		addLog("ANALYSIS", "SEGMENT", "Segmentation completed",
			fmt.Sprintf("chapters=%d scenes=%d", seg.Metadata.TotalChapters, seg.Metadata.TotalScenes))
	}

	g, ctx := errgroup.WithContext(ctx)
	if res.Structure == nil {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", StageStructure, err)
			}
			rep, err := structure.Analyze(doc, res.Segmentation, opts.Structure)
			if err != nil {
				return fmt.Errorf("%s: %w", StageStructure, err)
			}
			res.Structure = rep
			return nil
		})
	}
	if res.Genre == nil {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", StageGenre, err)
			}
			rep, err := genre.Detect(doc, opts.Genre)
			if err != nil {
				return fmt.Errorf("%s: %w", StageGenre, err)
			}
			res.Genre = rep
			return nil
		})
	}
	if res.Characters == nil {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s: %w", StageCharacters, err)
			}
			rep, err := characters.Track(doc, res.Segmentation, opts.Characters)
			if err != nil {
				return fmt.Errorf("%s: %w", StageCharacters, err)
			}
			res.Characters = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		addLog("RISK", "PIPELINE", "Run aborted", err.Error())
		return nil, err
	}

	if !resumedSet[StageStructure] {
		addLog("ANALYSIS", "STRUCTURE", "Scene analysis completed",
			fmt.Sprintf("scenes=%d issues=%d", len(res.Structure.Scenes), res.Structure.Summary.TotalIssues))
	}
	if !resumedSet[StageGenre] {
		addLog("ANALYSIS", "GENRE", "Genre detected",
			fmt.Sprintf("primary=%s confidence=%.2f", res.Genre.PrimaryGenre, res.Genre.PrimaryConfidence))
	}
	if !resumedSet[StageCharacters] {
		protagonist := "none"
		if res.Characters.Protagonist != nil {
			protagonist = res.Characters.Protagonist.Name
		}
		addLog("ANALYSIS", "CHARACTERS", "Character tracking completed",
			fmt.Sprintf("protagonist=%s secondaries=%d", protagonist, len(res.Characters.SecondaryCharacters)))
	}

	if opts.Store != nil {
		saves := []struct {
			stage   string
			payload any
		}{
			{StageSegmentation, res.Segmentation},
			{StageStructure, res.Structure},
			{StageGenre, res.Genre},
			{StageCharacters, res.Characters},
		}
		for _, sv := range saves {
			if resumedSet[sv.stage] {
				continue
			}
			if err := opts.Store.SaveStage(runID, sv.stage, sv.payload); err != nil {
				addLog("RISK", "STORE", "Stage persistence failed", sv.stage+": "+err.Error())
			}
		}
		if err := opts.Store.CompleteRun(runID); err != nil {
			addLog("RISK", "STORE", "Run completion stamp failed", err.Error())
		}
	}

	res.RunID = runID
	res.Stats = RunStats{
		RunID:         runID,
		Source:        opts.SourcePath,
		Status:        StatusComplete,
		StartedAt:     started.Format(time.RFC3339),
		FinishedAt:    time.Now().Format(time.RFC3339),
		ResumedStages: resumedList,
	}
	addLog("INFO", "PIPELINE", "Run finished", fmt.Sprintf("status=%s resumed=%d", res.Stats.Status, len(resumedList)))
	return res, nil
}
