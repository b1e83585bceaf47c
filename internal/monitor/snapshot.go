package monitor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the captured evidence for one detected question. It is
// created once per question and never mutated afterwards.
type Snapshot struct {
	CapturedAt    time.Time
	ImagePath     string
	ExtractedText string
}

// fingerprint derives a stable identity for a question's content.
func fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// capture takes a full-page screenshot and writes it under dir with a
// second-resolution timestamp name. A failed full-page capture falls back to
// a viewport capture; a failed capture altogether leaves ImagePath empty
// rather than failing the question flow.
func (w *Watcher) capture(text string) Snapshot {
	snap := Snapshot{CapturedAt: w.now(), ExtractedText: text}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.log.Error("create snapshot directory failed", "dir", w.dir, "error", err)
		return snap
	}

	img, err := w.driver.FullScreenshot()
	if err != nil {
		w.log.Warn("full-page capture failed, trying viewport", "error", err)
		img, err = w.driver.Screenshot()
		if err != nil {
			w.log.Error("viewport capture failed", "error", err)
			return snap
		}
	}

	name := fmt.Sprintf("question_%s.png", snap.CapturedAt.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, img, 0o644); err != nil {
		w.log.Error("write snapshot failed", "path", path, "error", err)
		return snap
	}

	snap.ImagePath = path
	w.log.Info("snapshot captured", "path", path)
	return snap
}

