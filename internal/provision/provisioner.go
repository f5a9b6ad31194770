package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"qrpass/entity"
	"qrpass/lib/clock"
	"qrpass/lib/sl"

	"github.com/google/uuid"
)

// Stage names the step of a row that failed.
type Stage string

const (
	StageToken   Stage = "token"
	StagePersist Stage = "persist"
	StageRender  Stage = "render"
)

// Store is the write side of the pass store.
type Store interface {
	CreatePass(ctx context.Context, pass *entity.Pass) error
}

type Config struct {
	BaseURL string
	OutDir  string
}

type Result struct {
	Line int
	Pass *entity.Pass
	URL  string
	File string
}

type RowError struct {
	Line  int
	Name  string
	Token string
	Stage Stage
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %s: %v", e.Line, e.Name, e.Stage, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Report summarizes a best-effort batch: failed rows never stop the rest.
type Report struct {
	Batch   string
	Created []*Result
	Failed  []*RowError
}

func (r *Report) Ok() bool {
	return len(r.Failed) == 0
}

type Provisioner struct {
	store    Store
	renderer Renderer
	clock    clock.Clock
	conf     Config
	newToken func() (string, error)
	log      *slog.Logger
}

func New(store Store, renderer Renderer, conf Config, log *slog.Logger) *Provisioner {
	conf.BaseURL = CleanBaseURL(conf.BaseURL)
	return &Provisioner{
		store:    store,
		renderer: renderer,
		clock:    clock.System(),
		conf:     conf,
		newToken: NewToken,
		log:      log.With(sl.Module("provision")),
	}
}

// SetClock replaces the time source used for createdAt.
func (p *Provisioner) SetClock(clk clock.Clock) {
	p.clock = clk
}

// Run provisions rows in order under one batch id.
func (p *Provisioner) Run(ctx context.Context, rows []Row) (*Report, error) {
	if err := os.MkdirAll(p.conf.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	report := &Report{Batch: uuid.NewString()}
	log := p.log.With(slog.String("batch", report.Batch))
	log.With(slog.Int("rows", len(rows))).Info("provisioning started")

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("provisioning interrupted: %w", err)
		}
		result, rowErr := p.provision(ctx, report.Batch, row)
		if rowErr != nil {
			log.With(
				slog.Int("line", rowErr.Line),
				slog.String("name", rowErr.Name),
				slog.String("stage", string(rowErr.Stage)),
			).Error("row failed", sl.Err(rowErr.Err))
			report.Failed = append(report.Failed, rowErr)
			continue
		}
		log.With(
			slog.String("name", result.Pass.Name),
			slog.String("file", result.File),
			sl.Token(result.Pass.Token),
		).Info("pass created")
		report.Created = append(report.Created, result)
	}

	log.With(
		slog.Int("created", len(report.Created)),
		slog.Int("failed", len(report.Failed)),
	).Info("provisioning finished")
	return report, nil
}

// provision persists the pass before rendering, so no artifact exists for a token the store rejected.
func (p *Provisioner) provision(ctx context.Context, batch string, row Row) (*Result, *RowError) {
	token, err := p.newToken()
	if err != nil {
		return nil, &RowError{Line: row.Line, Name: row.Name, Stage: StageToken, Err: err}
	}

	pass := entity.NewPass(token, row.Name, row.Phone, row.Note, p.clock.Now())
	pass.Batch = batch

	if err = p.store.CreatePass(ctx, pass); err != nil {
		return nil, &RowError{Line: row.Line, Name: pass.Name, Token: token, Stage: StagePersist, Err: err}
	}

	link := RedemptionURL(p.conf.BaseURL, token)
	path := artifactPath(p.conf.OutDir, pass.Name, token)
	if err = p.renderer.Render(link, path); err != nil {
		return nil, &RowError{Line: row.Line, Name: pass.Name, Token: token, Stage: StageRender, Err: err}
	}

	return &Result{
		Line: row.Line,
		Pass: pass,
		URL:  link,
		File: path,
	}, nil
}
