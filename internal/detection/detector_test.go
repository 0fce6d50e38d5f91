package detection

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/line-detector-mcp/internal/imaging"
)

// barRow returns a row of background value bg with a 3-pixel bar of value
// fg at columns [start, start+3).
func barRow(width, start int, bg, fg uint8) []uint8 {
	row := make([]uint8, width)
	for i := range row {
		row[i] = bg
	}
	for i := start; i < start+3; i++ {
		row[i] = fg
	}
	return row
}

// stepRow returns a row of value left for x < at and right otherwise.
func stepRow(width, at int, left, right uint8) []uint8 {
	row := make([]uint8, width)
	for i := range row {
		if i < at {
			row[i] = left
		} else {
			row[i] = right
		}
	}
	return row
}

func nonZero(out []int16) map[int]int16 {
	m := make(map[int]int16)
	for i, v := range out {
		if v != 0 {
			m[i] = v
		}
	}
	return m
}

func TestConstructors_WindowPolicy(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (EdgeDetector, error)
		wantErr error
	}{
		{"rms bar ok", func() (EdgeDetector, error) { return NewRMSBarDetector(11, 2) }, nil},
		{"rms bar too wide", func() (EdgeDetector, error) { return NewRMSBarDetector(12, 2) }, ErrInvalidWindow},
		{"rms bar zero", func() (EdgeDetector, error) { return NewRMSBarDetector(0, 2) }, ErrInvalidWindow},
		{"rms bar delta", func() (EdgeDetector, error) { return NewRMSBarDetector(4, 256) }, ErrInvalidParameter},
		{"rms step ok", func() (EdgeDetector, error) { return NewRMSStepDetector(255) }, nil},
		{"rms step too wide", func() (EdgeDetector, error) { return NewRMSStepDetector(256) }, ErrInvalidWindow},
		{"rms bar f", func() (EdgeDetector, error) { return NewRMSBarDetectorF(30, 0) }, nil},
		{"rms step f", func() (EdgeDetector, error) { return NewRMSStepDetectorF(-1) }, ErrInvalidWindow},
		{"ad bar too wide", func() (EdgeDetector, error) { return NewADBarDetector(43) }, ErrInvalidWindow},
		{"sd step ok", func() (EdgeDetector, error) { return NewSDStepDetector(127, 3) }, nil},
		{"sd step too wide", func() (EdgeDetector, error) { return NewSDStepDetector(128, 1) }, ErrInvalidWindow},
		{"sd step no gap", func() (EdgeDetector, error) { return NewSDStepDetector(4, 0) }, ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.build()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !d.Valid() {
					t.Error("constructed detector reports invalid")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEdgeDetector_ZeroValueInvalid(t *testing.T) {
	var d EdgeDetector
	if d.Valid() {
		t.Fatal("zero EdgeDetector should be invalid")
	}
	f := imaging.NewFrame(30, 30)
	if err := d.InvokeVertical(f, make([]int16, 900)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("InvokeVertical on zero detector: got %v", err)
	}
}

func TestEdgeDetector_Metadata(t *testing.T) {
	tests := []struct {
		build    func() (EdgeDetector, error)
		edgeType EdgeType
		adjusted uint
		name     string
	}{
		{func() (EdgeDetector, error) { return NewRMSBarDetector(4, 2) }, EdgeBar, 2500, "rms_bar(window=4, minimal_delta=2)"},
		{func() (EdgeDetector, error) { return NewRMSStepDetector(4) }, EdgeStep, 2500, "rms_step(window=4)"},
		{func() (EdgeDetector, error) { return NewRMSBarDetectorF(4, 2) }, EdgeBar, 50, "rms_bar_f(window=4, minimal_delta=2)"},
		{func() (EdgeDetector, error) { return NewRMSStepDetectorF(4) }, EdgeStep, 50, "rms_step_f(window=4)"},
		{func() (EdgeDetector, error) { return NewADBarDetector(4) }, EdgeBar, 50, "ad_bar(window=4)"},
		{func() (EdgeDetector, error) { return NewSDStepDetector(4, 1) }, EdgeStep, 50, "sd_step(window=4, step=1)"},
	}
	for _, tt := range tests {
		d, err := tt.build()
		if err != nil {
			t.Fatalf("constructor failed: %v", err)
		}
		if d.EdgeType() != tt.edgeType {
			t.Errorf("%s: edge type %v, want %v", tt.name, d.EdgeType(), tt.edgeType)
		}
		if got := d.AdjustThreshold(50); got != tt.adjusted {
			t.Errorf("%s: AdjustThreshold(50) = %d, want %d", tt.name, got, tt.adjusted)
		}
		if d.String() != tt.name {
			t.Errorf("String() = %q, want %q", d.String(), tt.name)
		}
	}
}

func TestRMSBarResponse_BrightBar(t *testing.T) {
	row := barRow(40, 19, 20, 200)
	sums := make([]uint16, len(row)-4+1)
	sqr := make([]uint32, len(row)-4+1)
	determineRowSumsAndSquares(row, 4, sums, sqr)

	out := make([]int16, len(row))
	rmsBarRow(row, 4, 2, sums, sqr, out)

	// the bar is flat, so only its right pixel is a strict peak against both neighbours
	want := map[int]int16{21: 1792}
	if diff := cmp.Diff(want, nonZero(out)); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}

func TestRMSBarResponse_DarkBarIsNegative(t *testing.T) {
	row := barRow(40, 19, 200, 20)
	sums := make([]uint16, len(row)-4+1)
	sqr := make([]uint32, len(row)-4+1)
	determineRowSumsAndSquares(row, 4, sums, sqr)

	out := make([]int16, len(row))
	rmsBarRow(row, 4, 2, sums, sqr, out)

	got := nonZero(out)
	if len(got) != 1 || got[21] != -1792 {
		t.Errorf("dark bar responses: %v, want {21: -1792}", got)
	}
}

func TestRMSBarResponse_MinimalDelta(t *testing.T) {
	// a 1-level bar never reaches minimal delta 2
	row := barRow(40, 19, 100, 101)
	sums := make([]uint16, len(row)-4+1)
	sqr := make([]uint32, len(row)-4+1)
	determineRowSumsAndSquares(row, 4, sums, sqr)

	out := make([]int16, len(row))
	rmsBarRow(row, 4, 2, sums, sqr, out)
	if got := nonZero(out); len(got) != 0 {
		t.Errorf("expected no responses, got %v", got)
	}
}

func TestRMSStepRow_BoundaryColumn(t *testing.T) {
	row := stepRow(40, 20, 30, 220)
	sums := make([]uint16, len(row)-4+1)
	sqr := make([]uint32, len(row)-4+1)
	determineRowSumsAndSquares(row, 4, sums, sqr)

	out := make([]int16, len(row))
	rmsStepRow(row, 4, sums, sqr, out)

	want := map[int]int16{19: -32768}
	if diff := cmp.Diff(want, nonZero(out)); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}

func TestRMSStepResponse_Values(t *testing.T) {
	tests := []struct {
		name                   string
		sumL, sumR, sqrL, sqrR int
		want                   int16
	}{
		{"flat", 400, 400, 40000, 40000, 0},
		{"saturated", 120, 880, 3600, 193600, -32768},
		// left 30,30,30,220 against four 220: residual 108300
		{"noisy left", 310, 880, 51100, 193600, -96},
		{"bright left", 880, 120, 193600, 3600, 32767},
	}
	for _, tt := range tests {
		if got := rmsStepResponse(4, tt.sumL, tt.sumR, tt.sqrL, tt.sqrR); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSuppressNonMaxima(t *testing.T) {
	tests := []struct {
		name string
		in   []int16
		want []int16
	}{
		{
			name: "positive plateau keeps left",
			in:   []int16{0, 1, 5, 9, 9, 3, 0, 0},
			want: []int16{0, 0, 0, 9, 0, 0, 0, 0},
		},
		{
			name: "negative plateau keeps left",
			in:   []int16{0, -1, -5, -9, -9, -3, 0, 0},
			want: []int16{0, 0, 0, -9, 0, 0, 0, 0},
		},
		{
			name: "two peaks",
			in:   []int16{0, 4, 2, 7, 1, 0, 0, 0},
			want: []int16{0, 4, 0, 7, 0, 0, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := append([]int16(nil), tt.in...)
			suppressNonMaxima(line, 1, 1, len(line)-1)
			if diff := cmp.Diff(tt.want, line); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSuppressNonMaxima_Strided(t *testing.T) {
	// the same column as "two peaks", interleaved with a second column
	line := []int16{0, 9, 4, 9, 2, 9, 7, 9, 1, 9, 0, 9, 0, 9, 0, 9}
	suppressNonMaxima(line, 2, 1, 7)

	want := []int16{0, 9, 4, 9, 0, 9, 7, 9, 0, 9, 0, 9, 0, 9, 0, 9}
	if diff := cmp.Diff(want, line); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRMSBarFRow_BrightBar(t *testing.T) {
	row := barRow(40, 19, 20, 200)
	sums := make([]uint32, len(row)-4+1)
	sqr := make([]uint32, len(row)-4+1)
	determineRowSumsAndSquares(row, 4, sums, sqr)

	out := make([]int16, len(row))
	rmsBarFRow(row, 4, 2, sums, sqr, out)

	want := map[int]int16{21: 42}
	if diff := cmp.Diff(want, nonZero(out)); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}

func TestRMSStepFRow_BoundaryColumn(t *testing.T) {
	row := stepRow(30, 15, 30, 220)
	sums := make([]uint32, len(row)-4+1)
	sqr := make([]uint32, len(row)-4+1)
	determineRowSumsAndSquares(row, 4, sums, sqr)

	out := make([]int16, len(row))
	rmsStepFRow(4, sums, sqr, out)

	want := map[int]int16{14: -maxRMSStepResponseF}
	if diff := cmp.Diff(want, nonZero(out)); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}

func TestADBarResponse(t *testing.T) {
	tests := []struct {
		name                string
		minus, center, plus uint8
		sumL, sumR          int
		want                int16
	}{
		{"bright", 100, 100, 100, 40, 40, 480},
		{"dark", 20, 20, 20, 200, 200, -480},
		{"one side only", 100, 100, 100, 40, 200, 0},
		{"at gate", 30, 30, 30, 40, 40, 60},
		{"below gate", 29, 29, 29, 40, 40, 0},
	}
	for _, tt := range tests {
		if got := adBarResponse(2, tt.minus, tt.center, tt.plus, tt.sumL, tt.sumR); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSDStepRow(t *testing.T) {
	row := stepRow(20, 10, 10, 50)
	sums := make([]uint16, len(row)-3+1)
	determineRowSums(row, 3, sums)

	out := make([]int16, len(row))
	sdStepRow(len(row), 3, 1, sums, out)

	want := map[int]int16{9: -120}
	if diff := cmp.Diff(want, nonZero(out)); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}

// randomFrame returns a padded frame of smooth random blobs, so kernels
// produce plenty of non-zero responses.
func randomFrame(seed int64, width, height, padding int) *imaging.Frame {
	rng := rand.New(rand.NewSource(seed))
	f := &imaging.Frame{
		Pix:             make([]uint8, height*(width+padding)),
		Width:           width,
		Height:          height,
		PaddingElements: padding,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := 40 + rng.Intn(30)
			if (x/5+y/7)%2 == 0 {
				v += 120
			}
			f.Set(x, y, uint8(v))
		}
	}
	return f
}

// transposeResponses swaps rows and columns of a width x height buffer.
func transposeResponses(in []int16, width, height int) []int16 {
	out := make([]int16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out[x*height+y] = in[y*width+x]
		}
	}
	return out
}

func TestInvokeHorizontal_MatchesTransposedVertical(t *testing.T) {
	build := map[string]func() (EdgeDetector, error){
		"rms_bar":    func() (EdgeDetector, error) { return NewRMSBarDetector(3, 2) },
		"rms_step":   func() (EdgeDetector, error) { return NewRMSStepDetector(3) },
		"sd_step":    func() (EdgeDetector, error) { return NewSDStepDetector(3, 1) },
		"sd_step_g2": func() (EdgeDetector, error) { return NewSDStepDetector(2, 2) },
		"sd_step_g3": func() (EdgeDetector, error) { return NewSDStepDetector(4, 3) },
	}

	f := randomFrame(3, 37, 29, 3)
	w, h := f.Width, f.Height

	for name, b := range build {
		t.Run(name, func(t *testing.T) {
			d, err := b()
			if err != nil {
				t.Fatalf("constructor failed: %v", err)
			}
			if !d.HasInvokeHorizontal(w, h) {
				t.Fatalf("%v should have a column path for %dx%d", d, w, h)
			}

			native := make([]int16, w*h)
			for i := range native {
				native[i] = 77 // stale values must be overwritten
			}
			if err := d.InvokeHorizontal(f, native); err != nil {
				t.Fatalf("InvokeHorizontal failed: %v", err)
			}

			viaTranspose := make([]int16, w*h)
			if err := d.InvokeVertical(f.Transposed(), viaTranspose); err != nil {
				t.Fatalf("InvokeVertical failed: %v", err)
			}

			if diff := cmp.Diff(transposeResponses(viaTranspose, h, w), native); diff != "" {
				t.Errorf("column path differs from transposed row path (-want +got):\n%s", diff)
			}
			if len(nonZero(native)) == 0 {
				t.Error("test frame produced no responses")
			}
		})
	}
}

func TestHasInvokeHorizontal(t *testing.T) {
	bar, _ := NewRMSBarDetector(4, 2)
	step, _ := NewRMSStepDetector(4)
	sd, _ := NewSDStepDetector(4, 2)
	ad, _ := NewADBarDetector(4)
	barF, _ := NewRMSBarDetectorF(4, 2)

	tests := []struct {
		d             EdgeDetector
		width, height int
		want          bool
	}{
		{bar, 8, 11, true},
		{bar, 8, 10, false},
		{bar, 7, 40, false},
		{step, 8, 9, true},
		{step, 8, 8, false},
		{sd, 8, 10, true},
		{sd, 8, 9, false},
		{ad, 100, 100, false},
		{barF, 100, 100, false},
	}
	for _, tt := range tests {
		if got := tt.d.HasInvokeHorizontal(tt.width, tt.height); got != tt.want {
			t.Errorf("%v.HasInvokeHorizontal(%d, %d) = %v, want %v", tt.d, tt.width, tt.height, got, tt.want)
		}
	}
}

func TestInvokeVertical_PaddingIgnored(t *testing.T) {
	d, err := NewRMSStepDetector(4)
	if err != nil {
		t.Fatal(err)
	}

	padded := randomFrame(5, 30, 24, 7)
	for y := 0; y < padded.Height; y++ {
		// garbage in the padding bytes
		for p := 0; p < padded.PaddingElements; p++ {
			padded.Pix[y*padded.StrideElements()+padded.Width+p] = 255
		}
	}
	packed := imaging.NewFrame(30, 24)
	for y := 0; y < 24; y++ {
		copy(packed.Row(y), padded.Row(y))
	}

	a := make([]int16, 30*24)
	b := make([]int16, 30*24)
	if err := d.InvokeVertical(padded, a); err != nil {
		t.Fatal(err)
	}
	if err := d.InvokeVertical(packed, b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("padding changed responses (-padded +packed):\n%s", diff)
	}
}
