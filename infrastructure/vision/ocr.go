package vision

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"desktop_automation/domain/entities"
)

// DefaultTesseractCommand is used when TESSERACT_CMD is not set.
const DefaultTesseractCommand = "tesseract"

const ocrTimeout = 30 * time.Second

// Word is one OCR token with its box in the coordinates of the scanned image.
type Word struct {
	Text       string
	Box        entities.Region
	Confidence float64
	Line       int
}

// Recognizer extracts words from an image.
type Recognizer interface {
	Words(img image.Image) ([]Word, error)
}

// Tesseract runs the tesseract CLI and parses its TSV output.
type Tesseract struct {
	command string
}

// NewTesseract - creates new tesseract recognizer
func NewTesseract(command string) *Tesseract {
	if command == "" {
		command = DefaultTesseractCommand
	}
	return &Tesseract{command: command}
}

// Words - runs OCR over img and returns recognized words
func (t *Tesseract) Words(img image.Image) ([]Word, error) {
	tmp, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("ocr: failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("ocr: failed to write image: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ocrTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.command, tmp.Name(), "stdout", "tsv")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ocr: tesseract timed out after %s", ocrTimeout)
		}
		return nil, fmt.Errorf("ocr: tesseract failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return ParseTSV(stdout.Bytes())
}

// ParseTSV parses tesseract TSV output into words. Non-word rows and rows
// with negative confidence are skipped.
func ParseTSV(data []byte) ([]Word, error) {
	var words []Word
	lines := map[[3]int]int{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 12 || fields[0] != "5" {
			continue
		}

		nums := make([]int, 10)
		for i := range nums {
			n, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, fmt.Errorf("ocr: malformed tsv column %d: %q", i, fields[i])
			}
			nums[i] = n
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			return nil, fmt.Errorf("ocr: malformed confidence %q", fields[10])
		}
		text := strings.TrimSpace(strings.Join(fields[11:], "\t"))
		if text == "" || conf < 0 {
			continue
		}

		key := [3]int{nums[2], nums[3], nums[4]}
		line, ok := lines[key]
		if !ok {
			line = len(lines)
			lines[key] = line
		}

		words = append(words, Word{
			Text:       text,
			Box:        entities.Region{X: nums[6], Y: nums[7], W: nums[8], H: nums[9]},
			Confidence: conf / 100,
			Line:       line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ocr: failed to read tsv: %w", err)
	}
	return words, nil
}

// JoinLines renders words with at least minConfidence as text, one line per
// OCR line.
func JoinLines(words []Word, minConfidence float64) string {
	var b strings.Builder
	line := -1
	for _, w := range words {
		if w.Confidence < minConfidence {
			continue
		}
		switch {
		case line == -1:
		case w.Line != line:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
		b.WriteString(w.Text)
		line = w.Line
	}
	return b.String()
}

// MatchPhrase returns every run of consecutive words on one line whose joined
// text contains query case-insensitively and whose words all reach threshold.
// The run box is the union of its word boxes.
func MatchPhrase(words []Word, query string, threshold float64) []entities.TextMatch {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	span := len(strings.Fields(needle))

	var matches []entities.TextMatch
	for i := range words {
		if words[i].Confidence < threshold {
			continue
		}
		parts := make([]string, 0, span)
		box := words[i].Box
		conf := words[i].Confidence

		for j := i; j < len(words) && j-i < span; j++ {
			w := words[j]
			if w.Line != words[i].Line || w.Confidence < threshold {
				break
			}
			parts = append(parts, w.Text)
			box = union(box, w.Box)
			conf = min(conf, w.Confidence)

			if strings.Contains(strings.ToLower(strings.Join(parts, " ")), needle) {
				matches = append(matches, entities.TextMatch{
					Text:       strings.Join(parts, " "),
					Box:        box,
					Confidence: conf,
				})
				break
			}
		}
	}
	return matches
}

func union(a, b entities.Region) entities.Region {
	r := image.Rect(a.X, a.Y, a.X+a.W, a.Y+a.H).Union(image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H))
	return entities.Region{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}
