package ocr

import (
	"errors"
	"image"
	"os"
	"testing"
)

type fakeRecognizer struct {
	calls   []RecognitionConfig
	answers map[int]string
	errs    map[int]error
}

func (f *fakeRecognizer) Recognize(img []byte, cfg RecognitionConfig) (string, error) {
	n := len(f.calls)
	f.calls = append(f.calls, cfg)
	if err := f.errs[n]; err != nil {
		return "", err
	}
	return f.answers[n], nil
}

var twoConfigs = []RecognitionConfig{
	{EngineMode: OEM_DEFAULT, PageSegMode: PSM_SINGLE_BLOCK},
	{EngineMode: OEM_DEFAULT, PageSegMode: PSM_SPARSE_TEXT},
}

func TestEngineFirstNonEmptyWins(t *testing.T) {
	rec := &fakeRecognizer{answers: map[int]string{2: "   ", 4: "  Invoice 42 \n", 5: "later"}}
	e := NewEngine(rec, WithConfigs(twoConfigs))

	got := e.Recognize(newWhite(20, 20))
	if got != "Invoice 42" {
		t.Errorf("Recognize() = %q, want %q", got, "Invoice 42")
	}
	if len(rec.calls) != 5 {
		t.Errorf("recognizer called %d times, want 5", len(rec.calls))
	}
	// Configurations are the inner loop.
	if rec.calls[1].PageSegMode != PSM_SPARSE_TEXT || rec.calls[2].PageSegMode != PSM_SINGLE_BLOCK {
		t.Errorf("unexpected search order: %+v", rec.calls)
	}
}

func TestEngineSwallowsErrors(t *testing.T) {
	rec := &fakeRecognizer{
		errs:    map[int]error{0: errors.New("tesseract hiccup")},
		answers: map[int]string{1: "text"},
	}
	e := NewEngine(rec, WithConfigs(twoConfigs))
	if got := e.Recognize(newWhite(20, 20)); got != "text" {
		t.Errorf("Recognize() = %q, want %q", got, "text")
	}
}

func TestEngineStopsWhenOCRDisabled(t *testing.T) {
	rec := &fakeRecognizer{errs: map[int]error{0: ErrOCRNotEnabled}}
	e := NewEngine(rec, WithConfigs(twoConfigs))
	if got := e.Recognize(newWhite(20, 20)); got != "" {
		t.Errorf("Recognize() = %q, want empty", got)
	}
	if len(rec.calls) != 1 {
		t.Errorf("recognizer called %d times, want 1", len(rec.calls))
	}
}

func TestEngineExhaustsSearch(t *testing.T) {
	rec := &fakeRecognizer{}
	e := NewEngine(rec, WithConfigs(twoConfigs))
	if got := e.Recognize(newWhite(20, 20)); got != "" {
		t.Errorf("Recognize() = %q, want empty", got)
	}
	if want := len(VariantNames()) * len(twoConfigs); len(rec.calls) != want {
		t.Errorf("recognizer called %d times, want %d", len(rec.calls), want)
	}
}

func TestEngineWithoutRecognizer(t *testing.T) {
	e := NewEngine(nil)
	if e.Enabled() {
		t.Error("Enabled() = true for nil recognizer")
	}
	if got := e.Recognize(newWhite(20, 20)); got != "" {
		t.Errorf("Recognize() = %q, want empty", got)
	}
	if got := e.RecognizeBytes([]byte("not an image")); got != "" {
		t.Errorf("RecognizeBytes() = %q, want empty", got)
	}
}

func TestEngineEmptyImage(t *testing.T) {
	rec := &fakeRecognizer{}
	e := NewEngine(rec)
	if got := e.Recognize(image.NewGray(image.Rect(0, 0, 0, 0))); got != "" {
		t.Errorf("Recognize() = %q, want empty", got)
	}
	if len(rec.calls) != 0 {
		t.Errorf("recognizer called %d times for an empty image", len(rec.calls))
	}
}

func TestEngineDebugDir(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecognizer{answers: map[int]string{0: "hit"}}
	e := NewEngine(rec, WithConfigs(twoConfigs), WithDebugDir(dir))
	if got := e.Recognize(newWhite(20, 20)); got != "hit" {
		t.Fatalf("Recognize() = %q, want %q", got, "hit")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(VariantNames()) {
		t.Errorf("debug dir holds %d files, want %d", len(entries), len(VariantNames()))
	}
}

func TestRecognizeBytes(t *testing.T) {
	data, err := encodePNG(newWhite(30, 10))
	if err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecognizer{answers: map[int]string{0: "decoded"}}
	e := NewEngine(rec)
	if got := e.RecognizeBytes(data); got != "decoded" {
		t.Errorf("RecognizeBytes() = %q, want %q", got, "decoded")
	}
}

func TestDefaultConfigs(t *testing.T) {
	configs := DefaultConfigs(PSM_SINGLE_BLOCK)
	if configs[0].PageSegMode != PSM_SINGLE_BLOCK || !configs[0].PreserveInterwordSpaces {
		t.Errorf("first config = %+v", configs[0])
	}
	for i := 1; i < len(configs); i++ {
		if configs[i] == configs[0] {
			t.Errorf("config %d duplicates the preferred config", i)
		}
	}

	sparse := DefaultConfigs(PSM_SPARSE_TEXT)
	if sparse[0].PageSegMode != PSM_SPARSE_TEXT {
		t.Errorf("preferred mode not first: %+v", sparse[0])
	}
	if len(sparse) != len(configs)+1 {
		t.Errorf("len = %d, want %d", len(sparse), len(configs)+1)
	}
}
