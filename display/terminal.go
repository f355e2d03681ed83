package eventide

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	Eo "github.com/maroda/eventide/obvy"
	Es "github.com/maroda/eventide/server"
	Et "github.com/maroda/eventide/types"
)

const (
	screenGutter = 3  // first timeline row
	labelWidth   = 10 // left margin for row labels
	rollingRows  = 3  // choice, reward, finished
)

// View owns the engine, its supervisors and the optional terminal screen.
// MU guards the view state below it, never the engine.
type View struct {
	Engine  *Es.Engine
	Runtime Es.RuntimeConfig
	Screen  tcell.Screen      // nil when running without a TUI
	Stats   *Eo.StatsInternal // Internal status for prometheus
	TickSup *Supervisor       // evict and compute each tick
	PollSup *Supervisor       // upstream source, nil when unset
	server  *http.Server

	MU        sync.Mutex
	latest    *Et.Frame // last computed frame
	ShowTable bool      // trial table overlay
	Paused    bool      // screen stops updating, ingestion continues
	started   time.Time
}

// NewView wires an engine to a view, screen may be nil
func NewView(engine *Es.Engine, rc Es.RuntimeConfig, screen tcell.Screen) *View {
	v := &View{
		Engine:  engine,
		Runtime: rc,
		Screen:  screen,
		Stats:   Eo.NewStatsInternal(),
		started: time.Now(),
	}
	v.NewTickSupervisor(rc.Tick)
	if rc.SourceURL != "" {
		v.NewPollSupervisor(rc.SourceURL, rc.Poll)
	}
	return v
}

// Tick evicts and computes a frame for the current engine time.
// now is read once here and used for both.
func (v *View) Tick() Et.Frame {
	start := time.Now()
	_, span := Eo.Tracer().Start(context.Background(), "tick")
	defer span.End()

	now := v.Engine.Now()
	v.Stats.RecEvicted(v.Engine.Evict(now))
	frame := v.Engine.Compute(now)

	events, _, _ := v.Engine.Stats()
	v.Stats.RecWorkingSet(events)
	v.Stats.RecTickTimer(time.Since(start).Seconds())

	v.MU.Lock()
	v.latest = &frame
	paused := v.Paused
	v.MU.Unlock()

	if v.Screen != nil && !paused {
		v.UpdateScreen(frame)
	}
	return frame
}

// CurrentFrame is the last ticked frame, or a fresh one before the first tick
func (v *View) CurrentFrame() Et.Frame {
	v.MU.Lock()
	latest := v.latest
	v.MU.Unlock()

	if latest != nil {
		return *latest
	}
	return v.Engine.Compute(v.Engine.Now())
}

// DrawText displays the text string at the given (x1, y1) with box size (x2, y2)
func (v *View) DrawText(x1, y1, x2, y2 int, text string) {
	row := y1
	col := x1
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorLightSteelBlue)
	for _, r := range text {
		v.Screen.SetContent(col, row, r, nil, style)
		col++
		if col >= x2 {
			row++
			col = x1
		}
		if row > y2 {
			break
		}
	}
}

// DrawViewBorder displays the outline of the View
func (v *View) DrawViewBorder(width, height int) {
	hvStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	v.Screen.SetContent(0, 0, tcell.RuneULCorner, nil, hvStyle)
	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, 0, tcell.RuneHLine, nil, hvStyle)
		v.Screen.SetContent(i, height, tcell.RuneHLine, nil, hvStyle)
	}
	v.Screen.SetContent(width, 0, tcell.RuneURCorner, nil, hvStyle)

	for i := 1; i < height; i++ {
		v.Screen.SetContent(0, i, tcell.RuneVLine, nil, hvStyle)
		v.Screen.SetContent(width, i, tcell.RuneVLine, nil, hvStyle)
	}

	v.Screen.SetContent(0, height, tcell.RuneLLCorner, nil, hvStyle)
	v.Screen.SetContent(width, height, tcell.RuneLRCorner, nil, hvStyle)
}

// timelineRows is how many trial rows fit above the analytics panel
func timelineRows(frame Et.Frame, height int) int {
	room := height - screenGutter - rollingRows - 4
	return max(0, min(frame.Window.VisibleTrialCount, room))
}

// rowOf is the screen row for a trial, false when it does not fit.
// The newest rows are kept when the screen is short.
func rowOf(trial int, frame Et.Frame, rows int) (int, bool) {
	last := frame.Window.VisibleTrialFirst + frame.Window.VisibleTrialCount
	first := last - rows
	if trial < first || trial >= last {
		return 0, false
	}
	return screenGutter + trial - first, true
}

// DrawTimeline shades segments and places point markers
func (v *View) DrawTimeline(frame Et.Frame, width, rows int) {
	window := frame.Window.VisibleTimeMax - frame.Window.VisibleTimeMin
	x1, x2 := labelWidth, width-2

	for i := 0; i < rows; i++ {
		trial := frame.Window.VisibleTrialFirst + frame.Window.VisibleTrialCount - rows + i
		v.DrawText(1, screenGutter+i, labelWidth, screenGutter+i, fmt.Sprintf("%8d", trial))
	}

	for _, seg := range frame.Segments {
		y, ok := rowOf(seg.Trial, frame, rows)
		if !ok {
			continue
		}
		start := TimeToColumn(seg.StartTime-frame.Now, window, x1, x2)
		end := TimeToColumn(seg.EndTime-frame.Now, window, x1, x2)
		if end == start {
			end++
		}
		style := tcell.StyleDefault.Background(BlendColor(seg.Style.Color, seg.Style.Alpha))
		WriteBar(v.Screen, start, y, end, y+1, style)
	}

	for _, series := range frame.Points {
		marker := MarkerRune(series.Spec.MarkerShape)
		fg := BlendColor(series.Spec.Color, 1)
		for _, p := range series.Points {
			y, ok := rowOf(p.Trial, frame, rows)
			if !ok {
				continue
			}
			x := TimeToColumn(p.X, window, x1, x2)
			_, _, style, _ := v.Screen.GetContent(x, y)
			v.Screen.SetContent(x, y, marker, nil, style.Foreground(fg))
		}
	}
}

// DrawRolling draws the newest rolling rates as sparklines, one per row
func (v *View) DrawRolling(rs Et.RollingSeries, y, width int) {
	series := []struct {
		label string
		rates []float64
	}{
		{"choice R", rs.ChoiceRate},
		{"reward", rs.RewardRate},
		{"finished", rs.FinishedRate},
	}

	span := width - 2 - labelWidth
	for i, s := range series {
		v.DrawText(1, y+i, labelWidth, y+i, s.label)
		from := max(0, len(s.rates)-span)
		for j, rate := range s.rates[from:] {
			r, style := SparkRune(rate)
			v.Screen.SetContent(labelWidth+j, y+i, r, nil, style)
		}
	}
}

// OutcomeRune is the glyph for a trial outcome.
// Right is up, left is down, filled is rewarded; auto trials are dimmed.
func OutcomeRune(m Et.OutcomeMark) (rune, tcell.Style) {
	var r rune
	style := tcell.StyleDefault
	switch m.Category {
	case Et.RightRewarded:
		r, style = '▲', style.Foreground(tcell.ColorLimeGreen)
	case Et.RightUnrewarded:
		r, style = '△', style.Foreground(tcell.ColorIndianRed)
	case Et.LeftRewarded:
		r, style = '▼', style.Foreground(tcell.ColorLimeGreen)
	case Et.LeftUnrewarded:
		r, style = '▽', style.Foreground(tcell.ColorIndianRed)
	default:
		r, style = '·', style.Foreground(tcell.ColorGray)
	}
	if m.Auto {
		style = style.Dim(true)
	}
	return r, style
}

// DrawOutcomes draws the newest outcome marks on one row
func (v *View) DrawOutcomes(view Et.OutcomeView, y, width int) {
	v.DrawText(1, y, labelWidth, y, "outcome")
	span := width - 2 - labelWidth
	from := max(0, len(view.Marks)-span)
	for j, m := range view.Marks[from:] {
		r, style := OutcomeRune(m)
		v.Screen.SetContent(labelWidth+j, y, r, nil, style)
	}
}

// DrawTable overlays the trial table from the top left
func (v *View) DrawTable(table Et.TrialTable, width, height int) {
	colW := 28
	if n := len(table.Columns); n > 0 {
		colW = max(8, min(colW, (width-2)/n))
	}
	bg := tcell.StyleDefault.Background(tcell.ColorBlack)
	WriteBar(v.Screen, 1, 1, width-1, min(height-1, len(table.Rows)+3), bg)

	for c, name := range table.Columns {
		v.DrawText(1+c*colW, 1, 1+(c+1)*colW-1, 1, name)
	}
	for r, row := range table.Rows {
		y := 2 + r
		if y >= height-1 {
			break
		}
		for c, cell := range row {
			v.DrawText(1+c*colW, y, 1+(c+1)*colW-1, y, cell)
		}
	}
}

// DrawFrame draws one frame onto the screen
func (v *View) DrawFrame(frame Et.Frame) {
	width, height := v.GetScreenSize()

	v.MU.Lock()
	showTable := v.ShowTable
	paused := v.Paused
	v.MU.Unlock()

	v.DrawViewBorder(width-1, height-1)

	header := fmt.Sprintf(" now %.1fs | window %.0fs | trials %d-%d ",
		frame.Now,
		frame.Window.VisibleTimeMax-frame.Window.VisibleTimeMin,
		frame.Window.VisibleTrialFirst,
		frame.Window.VisibleTrialFirst+frame.Window.VisibleTrialCount-1)
	if paused {
		header += "| PAUSED "
	}
	v.DrawText(1, 1, width-1, 1, header)

	rows := timelineRows(frame, height)
	v.DrawTimeline(frame, width, rows)

	y := screenGutter + rows + 1
	v.DrawRolling(frame.Rolling, y, width)
	v.DrawOutcomes(frame.Outcomes, y+rollingRows, width)

	if showTable {
		v.DrawTable(frame.Table, width, height)
	}

	v.DrawText(1, height-1, width, height-1, "/t/ table | /space/ pause | /ESC/ quit")
	v.DrawText(width-10, height-1, width, height-1, "EVENTIDE")
}

// GetScreenSize provides the terminal size for drawing
func (v *View) GetScreenSize() (int, int) {
	width, height := v.Screen.Size()
	return width, height
}

// ResizeScreen redraws the last frame after terminal changes
func (v *View) ResizeScreen() {
	v.Screen.Sync()
	v.UpdateScreen(v.CurrentFrame())
}

func (v *View) UpdateScreen(frame Et.Frame) {
	v.Screen.Clear()
	v.DrawFrame(frame)
	v.Screen.Show()
}

// HandleKey applies a key press, returning false when the view should quit
func (v *View) HandleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return false
	}

	v.MU.Lock()
	switch ev.Rune() {
	case 't':
		v.ShowTable = !v.ShowTable
	case ' ':
		v.Paused = !v.Paused
	}
	v.MU.Unlock()
	return true
}

// handleKeyBoardEvent runs until the user quits
func (v *View) handleKeyBoardEvent() {
	for {
		ev := v.Screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			// screen finalized
			return
		case *tcell.EventResize:
			v.ResizeScreen()
		case *tcell.EventKey:
			if !v.HandleKey(ev) {
				return
			}
			v.UpdateScreen(v.CurrentFrame())
		}
	}
}

// recoverLoop logs a panic in a supervised loop instead of crashing the TUI
func recoverLoop(name string) {
	if r := recover(); r != nil {
		slog.Error("Panic in loop", slog.String("loop", name), slog.Any("panic", r))
		slog.Error("Recovered from panic", slog.String("stack", string(debug.Stack())))
	}
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)
		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

// NewEngineView builds the engine, view and archive sink for a run
func NewEngineView(cfg Es.Config, rc Es.RuntimeConfig, screen tcell.Screen) (*View, error) {
	view := NewView(Es.NewEngine(cfg), rc, screen)
	if rc.BadgerPath != "" {
		if err := InitBadgerOutput(view, rc.BadgerPath, rc.BadgerBatch); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// Serve runs the HTTP surface until Shutdown, wrapped for tracing
func (v *View) Serve(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(v.SetupMux(), "eventide"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	v.MU.Lock()
	v.server = server
	v.MU.Unlock()

	slog.Info("Starting eventide web server...", slog.String("Port", addr),
		slog.String("frame", Es.ServeURL(addr, "api", "frame")),
		slog.String("stream", Es.StreamURL(addr, "ws")))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not start web server", slog.Any("Error", err))
		return err
	}
	return nil
}

// Start runs the tick loop and the upstream poller when one is configured
func (v *View) Start() {
	v.TickSup.Start()
	if v.PollSup != nil {
		v.PollSup.Start()
	}
}

// Shutdown stops the loops and the server, then flushes the archive
func (v *View) Shutdown(ctx context.Context) error {
	v.TickSup.Stop()
	if v.PollSup != nil {
		v.PollSup.Stop()
	}

	v.MU.Lock()
	server := v.server
	v.MU.Unlock()

	var errs []error
	if server != nil {
		errs = append(errs, server.Shutdown(ctx))
	}
	if out := v.Engine.CurrentOutput(); out != nil {
		errs = append(errs, out.Flush(), out.Close())
		v.Engine.SetOutput(nil)
	}
	return errors.Join(errs...)
}

// StartViewWithConfig is called by main to run the terminal view.
// The web surface is served alongside it on the runtime address.
func StartViewWithConfig(cfg Es.Config, rc Es.RuntimeConfig) error {
	screen, err := GetTTY()
	if err != nil {
		slog.Error("Could not get a terminal", slog.Any("Error", err))
		return err
	}

	view, err := NewEngineView(cfg, rc, screen)
	if err != nil {
		screen.Fini()
		return err
	}

	return view.runTUI()
}

func (v *View) runTUI() error {
	v.Start()
	go func() {
		if err := v.Serve(v.Runtime.Addr); err != nil {
			slog.Error("Web server stopped", slog.Any("Error", err))
		}
	}()

	v.handleKeyBoardEvent()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := v.Shutdown(ctx)
	v.Screen.Fini()
	return err
}

// StartWebNoTUI serves frames over HTTP and websocket only, blocking
func StartWebNoTUI(cfg Es.Config, rc Es.RuntimeConfig) error {
	view, err := NewEngineView(cfg, rc, nil)
	if err != nil {
		return err
	}

	view.Start()
	defer func() {
		if err := view.Shutdown(context.Background()); err != nil {
			slog.Error("Shutdown failed", slog.Any("Error", err))
		}
	}()
	return view.Serve(rc.Addr)
}
