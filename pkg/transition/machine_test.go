package transition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type showResult struct {
	res Result
	err error
}

func show(m *Machine, ctx context.Context, href string, content *vdom.VNode, commit func()) <-chan showResult {
	gen := m.Begin()
	out := make(chan showResult, 1)
	go func() {
		res, err := m.Show(ctx, gen, href, content, commit)
		out <- showResult{res, err}
	}()
	return out
}

func start(t *testing.T, m *Machine, href string) {
	t.Helper()
	if res, err := m.Show(context.Background(), m.Begin(), href, vdom.H1(href), nil); err != nil || res != Committed {
		t.Fatalf("initial Show = %v, %v", res, err)
	}
}

func TestShowCommitsImmediatelyWithoutPendingElements(t *testing.T) {
	m := NewMachine(Config{})
	start(t, m, "/")

	commits := 0
	res, err := m.Show(context.Background(), m.Begin(), "/blogs", vdom.Div(vdom.H1("Blogs")), func() { commits++ })
	if err != nil || res != Committed {
		t.Fatalf("Show = %v, %v", res, err)
	}
	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
	views := m.Views()
	if len(views) != 1 || views[0].State != StateActive || views[0].Href != "/blogs" {
		t.Errorf("views = %+v", views)
	}
}

func TestShowGatesOnCustomElements(t *testing.T) {
	reg := NewRegistry()
	var rendered [][]View
	m := NewMachine(Config{Elements: reg, OnRender: func(v []View) { rendered = append(rendered, v) }})
	start(t, m, "/")

	commits := 0
	done := show(m, context.Background(), "/blog/1",
		vdom.Div(vdom.El("blog-post"), vdom.El("blog-post")),
		func() { commits++ })

	waitFor(t, "queued view", func() bool { return len(m.Views()) == 2 })

	views := m.Views()
	if views[0].State != StateLeaving || views[0].Hidden {
		t.Errorf("old view = %+v, want visible LEAVING", views[0])
	}
	if views[1].State != StateQueued || !views[1].Hidden {
		t.Errorf("new view = %+v, want hidden QUEUED", views[1])
	}
	if commits != 0 {
		t.Fatal("committed before elements were ready")
	}

	reg.Define("blog-post")
	r := <-done
	if r.err != nil || r.res != Committed {
		t.Fatalf("Show = %v, %v", r.res, r.err)
	}
	if commits != 1 {
		t.Errorf("commits = %d, want exactly 1", commits)
	}
	views = m.Views()
	if len(views) != 1 || views[0].State != StateActive || views[0].Href != "/blog/1" {
		t.Errorf("views after commit = %+v", views)
	}
	if last := rendered[len(rendered)-1]; len(last) != 1 {
		t.Errorf("last render = %+v", last)
	}
}

func TestShowDefinedElementsDoNotGate(t *testing.T) {
	reg := NewRegistry()
	reg.Define("app-header")
	m := NewMachine(Config{Elements: reg})
	res, err := m.Show(context.Background(), m.Begin(), "/", vdom.El("app-header"), nil)
	if err != nil || res != Committed {
		t.Fatalf("Show = %v, %v", res, err)
	}
}

func TestNewerNavigationSupersedes(t *testing.T) {
	reg := NewRegistry()
	m := NewMachine(Config{Elements: reg})
	start(t, m, "/")

	staleCommits := 0
	stale := show(m, context.Background(), "/slow", vdom.El("slow-cmp"), func() { staleCommits++ })
	waitFor(t, "slow view queued", func() bool { return len(m.Views()) == 2 })

	freshCommits := 0
	res, err := m.Show(context.Background(), m.Begin(), "/fast", vdom.P("fast"), func() { freshCommits++ })
	if err != nil || res != Committed {
		t.Fatalf("fresh Show = %v, %v", res, err)
	}

	r := <-stale
	if !errors.Is(r.err, ErrSuperseded) {
		t.Errorf("stale Show err = %v, want ErrSuperseded", r.err)
	}
	reg.Define("slow-cmp")

	if staleCommits != 0 || freshCommits != 1 {
		t.Errorf("commits stale=%d fresh=%d", staleCommits, freshCommits)
	}
	if active, _ := m.Active(); active.Href != "/fast" {
		t.Errorf("active = %s", active.Href)
	}
}

func TestBeginAloneSupersedesWaitingView(t *testing.T) {
	reg := NewRegistry()
	m := NewMachine(Config{Elements: reg})
	start(t, m, "/")

	done := show(m, context.Background(), "/x", vdom.El("x-cmp"), func() { t.Error("superseded view committed") })
	waitFor(t, "queued view", func() bool { return len(m.Views()) == 2 })

	m.Begin()
	reg.Define("x-cmp")

	if r := <-done; !errors.Is(r.err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", r.err)
	}
	views := m.Views()
	if len(views) != 1 || views[0].Href != "/" || views[0].State != StateActive {
		t.Errorf("views = %+v, want the old view active again", views)
	}
}

func TestShowContextCancel(t *testing.T) {
	m := NewMachine(Config{})
	start(t, m, "/")

	ctx, cancel := context.WithCancel(context.Background())
	done := show(m, ctx, "/never", vdom.El("never-defined"), func() { t.Error("cancelled view committed") })
	waitFor(t, "queued view", func() bool { return len(m.Views()) == 2 })
	cancel()

	if r := <-done; !errors.Is(r.err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", r.err)
	}
	if active, ok := m.Active(); !ok || active.Href != "/" || active.State != StateActive {
		t.Errorf("active = %+v", active)
	}
}

func TestShowSameHrefIsUnchanged(t *testing.T) {
	m := NewMachine(Config{})
	start(t, m, "/blogs")

	res, err := m.Show(context.Background(), m.Begin(), "/blogs", vdom.P("updated"), func() { t.Error("commit on same href") })
	if err != nil || res != Unchanged {
		t.Fatalf("Show = %v, %v", res, err)
	}
	active, _ := m.Active()
	if active.Content.Tag != "p" {
		t.Errorf("content not swapped: %+v", active.Content)
	}
}

func TestShowStaleGeneration(t *testing.T) {
	m := NewMachine(Config{})
	gen := m.Begin()
	m.Begin()
	if _, err := m.Show(context.Background(), gen, "/", vdom.P(), nil); !errors.Is(err, ErrSuperseded) {
		t.Errorf("err = %v, want ErrSuperseded", err)
	}
	if !m.Current(gen + 1) {
		t.Error("Current should report the newest generation")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{StateQueued: "QUEUED", StateActive: "ACTIVE", StateLeaving: "LEAVING", State(9): "UNKNOWN"} {
		if s.String() != want {
			t.Errorf("State(%d) = %q, want %q", s, s.String(), want)
		}
	}
}

func TestMountSupersedesAndActivates(t *testing.T) {
	m := NewMachine(Config{})
	start(t, m, "/")

	done := show(m, context.Background(), "/wait", vdom.El("wait-cmp"), nil)
	waitFor(t, "queued view", func() bool { return len(m.Views()) == 2 })

	m.Mount("/mounted", vdom.P("m"))
	if r := <-done; !errors.Is(r.err, ErrSuperseded) {
		t.Errorf("err = %v, want ErrSuperseded", r.err)
	}
	views := m.Views()
	if len(views) != 1 || views[0].Href != "/mounted" || views[0].State != StateActive {
		t.Errorf("views = %+v", views)
	}
}
