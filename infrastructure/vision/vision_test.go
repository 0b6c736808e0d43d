package vision

import (
	"image"
	"image/color"
	"math"
	"testing"

	"desktop_automation/domain/entities"

	"github.com/google/go-cmp/cmp"
)

func uniform(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// pattern draws deterministic noise.
func pattern(w, h int, seed int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := (x*73856093 ^ y*19349663 ^ seed*83492791) >> 5
			g.Pix[y*g.Stride+x] = uint8(v)
		}
	}
	return g
}

func paste(dst, src *image.Gray, at image.Point) {
	for y := 0; y < src.Rect.Dy(); y++ {
		for x := 0; x < src.Rect.Dx(); x++ {
			dst.SetGray(at.X+x, at.Y+y, color.Gray{Y: src.Pix[y*src.Stride+x]})
		}
	}
}

func TestMeanAbsDiff(t *testing.T) {
	if d := MeanAbsDiff(uniform(10, 10, 100), uniform(10, 10, 100)); d != 0 {
		t.Fatalf("identical images: got %v, want 0", d)
	}
	if d := MeanAbsDiff(uniform(10, 10, 100), uniform(10, 10, 112)); d != 12 {
		t.Fatalf("offset images: got %v, want 12", d)
	}
	if d := MeanAbsDiff(uniform(10, 10, 0), uniform(5, 10, 0)); d != math.MaxFloat64 {
		t.Fatalf("size mismatch: got %v, want max", d)
	}
}

func TestDiffers(t *testing.T) {
	a, b := uniform(8, 8, 50), uniform(8, 8, 54)
	if Differs(a, b, 5.0) {
		t.Error("difference of 4 should not exceed threshold 5")
	}
	if !Differs(a, b, 3.0) {
		t.Error("difference of 4 should exceed threshold 3")
	}
}

func TestGray_ConvertsRGBAAndNormalizesOrigin(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(5, 5, 9, 9))
	for i := range rgba.Pix {
		rgba.Pix[i] = 255
	}
	g := Gray(rgba)
	if g.Rect != image.Rect(0, 0, 4, 4) {
		t.Fatalf("bounds = %v, want (0,0)-(4,4)", g.Rect)
	}
	if g.Pix[0] != 255 {
		t.Fatalf("pixel = %d, want 255", g.Pix[0])
	}
}

func TestMatchTemplate_FindsExactPosition(t *testing.T) {
	haystack := uniform(80, 60, 200)
	needle := pattern(12, 10, 1)
	paste(haystack, needle, image.Pt(37, 21))

	m, ok := MatchTemplate(haystack, needle)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.TopLeft != image.Pt(37, 21) {
		t.Fatalf("TopLeft = %v, want (37,21)", m.TopLeft)
	}
	if m.Score < 0.99 {
		t.Fatalf("Score = %v, want ~1", m.Score)
	}
	if m.Center() != image.Pt(43, 26) {
		t.Fatalf("Center = %v, want (43,26)", m.Center())
	}
}

func TestMatchTemplate_CoarseToFine(t *testing.T) {
	haystack := pattern(400, 300, 3)
	needle := pattern(60, 60, 9)
	paste(haystack, needle, image.Pt(211, 143))

	m, ok := MatchTemplate(haystack, needle)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.TopLeft != image.Pt(211, 143) {
		t.Fatalf("TopLeft = %v, want (211,143)", m.TopLeft)
	}
	if m.Score < 0.99 {
		t.Fatalf("Score = %v, want ~1", m.Score)
	}
}

func TestMatchTemplate_CoarseToFineEveryPhase(t *testing.T) {
	needle := pattern(60, 60, 9)
	for _, at := range []image.Point{
		image.Pt(210, 142), image.Pt(211, 142), image.Pt(210, 143), image.Pt(211, 143),
		image.Pt(3, 1), image.Pt(337, 239),
	} {
		haystack := pattern(400, 300, 3)
		paste(haystack, needle, at)

		m, ok := MatchTemplate(haystack, needle)
		if !ok {
			t.Fatalf("at %v: expected a match", at)
		}
		if m.TopLeft != at || m.Score < 0.99 {
			t.Errorf("at %v: TopLeft = %v score %.3f, want exact match", at, m.TopLeft, m.Score)
		}
	}
}

func TestMatchTemplate_CoarseToFineQuarterScale(t *testing.T) {
	haystack := pattern(500, 400, 5)
	needle := pattern(100, 100, 11)
	at := image.Pt(255, 118)
	paste(haystack, needle, at)

	m, ok := MatchTemplate(haystack, needle)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.TopLeft != at || m.Score < 0.99 {
		t.Fatalf("TopLeft = %v score %.3f, want %v", m.TopLeft, m.Score, at)
	}
}

func TestMatchTemplate_NeedleLargerThanHaystack(t *testing.T) {
	if _, ok := MatchTemplate(uniform(10, 10, 0), uniform(20, 5, 0)); ok {
		t.Fatal("expected no match for oversized needle")
	}
}

func TestParseTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t10\t20\t40\t12\t96.5\tSign\n" +
		"5\t1\t1\t1\t1\t2\t55\t20\t20\t12\t91\tin\n" +
		"5\t1\t1\t1\t2\t1\t10\t40\t60\t12\t42\tPassword\n" +
		"5\t1\t1\t1\t2\t2\t80\t40\t5\t12\t-1\t \n"

	words, err := ParseTSV([]byte(tsv))
	if err != nil {
		t.Fatalf("ParseTSV failed: %v", err)
	}

	want := []Word{
		{Text: "Sign", Box: entities.Region{X: 10, Y: 20, W: 40, H: 12}, Confidence: 0.965, Line: 0},
		{Text: "in", Box: entities.Region{X: 55, Y: 20, W: 20, H: 12}, Confidence: 0.91, Line: 0},
		{Text: "Password", Box: entities.Region{X: 10, Y: 40, W: 60, H: 12}, Confidence: 0.42, Line: 1},
	}
	if diff := cmp.Diff(want, words); diff != "" {
		t.Fatalf("words mismatch (-want +got):\n%s", diff)
	}

	if got := JoinLines(words, 0); got != "Sign in\nPassword" {
		t.Fatalf("JoinLines(0) = %q", got)
	}
	if got := JoinLines(words, 0.9); got != "Sign in" {
		t.Fatalf("JoinLines(0.9) = %q", got)
	}
}

func TestParseTSV_Malformed(t *testing.T) {
	tsv := "header\n5\t1\t1\t1\t1\tx\t0\t0\t1\t1\t90\tword\n"
	if _, err := ParseTSV([]byte(tsv)); err == nil {
		t.Fatal("expected error for malformed column")
	}
}

func TestMatchPhrase(t *testing.T) {
	words := []Word{
		{Text: "Sign", Box: entities.Region{X: 10, Y: 20, W: 40, H: 12}, Confidence: 0.95, Line: 0},
		{Text: "in", Box: entities.Region{X: 55, Y: 20, W: 20, H: 12}, Confidence: 0.90, Line: 0},
		{Text: "Submit", Box: entities.Region{X: 10, Y: 40, W: 60, H: 14}, Confidence: 0.90, Line: 1},
	}

	tests := []struct {
		name      string
		query     string
		threshold float64
		want      []entities.TextMatch
	}{
		{
			name:      "single word substring",
			query:     "SUBMIT",
			threshold: 0.8,
			want: []entities.TextMatch{
				{Text: "Submit", Box: entities.Region{X: 10, Y: 40, W: 60, H: 14}, Confidence: 0.90},
			},
		},
		{
			name:      "phrase spans words on one line",
			query:     "sign in",
			threshold: 0.8,
			want: []entities.TextMatch{
				{Text: "Sign in", Box: entities.Region{X: 10, Y: 20, W: 65, H: 12}, Confidence: 0.90},
			},
		},
		{
			name:      "below threshold",
			query:     "submit",
			threshold: 0.95,
			want:      nil,
		},
		{
			name:      "phrase never crosses lines",
			query:     "in submit",
			threshold: 0.5,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchPhrase(words, tt.query, tt.threshold)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("matches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTextRegions_OrderedByHint(t *testing.T) {
	g := uniform(300, 200, 255)
	// two dark blocks standing in for text lines
	paste(g, uniform(60, 24, 0), image.Pt(40, 20))
	paste(g, uniform(100, 30, 0), image.Pt(150, 150))

	top := TextRegions(g, entities.HintTop)
	if len(top) != 2 {
		t.Fatalf("got %d regions, want 2: %v", len(top), top)
	}
	if top[0].Y > top[1].Y {
		t.Fatalf("top hint not sorted by y: %v", top)
	}

	bottom := TextRegions(g, entities.HintBottom)
	if bottom[0].Y < bottom[1].Y {
		t.Fatalf("bottom hint not sorted by descending y: %v", bottom)
	}

	largest := TextRegions(g, entities.HintNone)
	if largest[0].W*largest[0].H < largest[1].W*largest[1].H {
		t.Fatalf("default order not largest first: %v", largest)
	}

	for _, r := range top {
		if r.X < 0 || r.Y < 0 || r.X+r.W > 300 || r.Y+r.H > 200 {
			t.Fatalf("region %v outside image", r)
		}
	}
}

func TestTextRegions_FlatImage(t *testing.T) {
	if got := TextRegions(uniform(50, 50, 128), entities.HintNone); len(got) != 0 {
		t.Fatalf("expected no regions on a flat image, got %v", got)
	}
}
