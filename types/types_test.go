package types

import "testing"

func TestJobAdvancesForwardOnly(t *testing.T) {
	job := NewJob("story", 3)
	if err := job.Advance(PhaseScenesReady); err != nil {
		t.Fatalf("skipping ahead is allowed: %v", err)
	}
	if err := job.Advance(PhaseStoryReady); err == nil {
		t.Fatalf("moving backwards must fail")
	}
	if err := job.Advance(PhaseScenesReady); err == nil {
		t.Fatalf("staying in place must fail")
	}
	job.Fail("videos", "quota exceeded")
	if job.Phase != PhaseFailed || job.Status != StatusFailed || job.FailedPhase != "videos" {
		t.Fatalf("unexpected failed job %+v", job)
	}
	if err := job.Advance(PhaseFinalized); err == nil {
		t.Fatalf("a failed job cannot advance")
	}
}

func TestJobComplete(t *testing.T) {
	job := NewJob("story", 1)
	_ = job.Advance(PhaseAssembled)
	if err := job.Complete("/durable/a.mp4"); err != nil {
		t.Fatal(err)
	}
	if job.Status != StatusCompleted || job.Location != "/durable/a.mp4" || job.CompletedAt.IsZero() {
		t.Fatalf("unexpected completed job %+v", job)
	}
}

func TestPositionFor(t *testing.T) {
	cases := []struct {
		i, total int
		want     Position
		in, out  bool
	}{
		{0, 1, PositionOnly, true, true},
		{0, 3, PositionFirst, true, false},
		{1, 3, PositionMiddle, false, false},
		{2, 3, PositionLast, false, true},
	}
	for _, c := range cases {
		p := PositionFor(c.i, c.total)
		if p != c.want || p.HasFadeIn() != c.in || p.HasFadeOut() != c.out {
			t.Fatalf("PositionFor(%d, %d) = %s (in=%v out=%v)", c.i, c.total, p, p.HasFadeIn(), p.HasFadeOut())
		}
	}
}

func TestTimelineValidate(t *testing.T) {
	ok := Timeline{Clips: []ProcessedClip{{Scene: 1, Duration: 4.2}, {Scene: 3, Duration: 3}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("gaps are tolerated: %v", err)
	}
	if ok.Duration() != 7.2 {
		t.Fatalf("unexpected duration %f", ok.Duration())
	}
	dup := Timeline{Clips: []ProcessedClip{{Scene: 1}, {Scene: 1}}}
	if err := dup.Validate(); err == nil {
		t.Fatalf("duplicates must be rejected")
	}
}

func TestValidateScenes(t *testing.T) {
	if err := ValidateScenes([]SceneSpec{{Number: 1}, {Number: 2}}); err != nil {
		t.Fatal(err)
	}
	if err := ValidateScenes([]SceneSpec{{Number: 1}, {Number: 3}}); err == nil {
		t.Fatalf("scene numbers must be dense")
	}
	if err := ValidateScenes(nil); err == nil {
		t.Fatalf("empty storyboard must be rejected")
	}
	if ParseSceneType("Reveal") != SceneEstablishing || ParseSceneType("reveal") != SceneReveal {
		t.Fatalf("scene types are matched exactly")
	}
}
