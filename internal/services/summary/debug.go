package summary

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pmpulse/backend/pkg/logger"
)

// dumpError persists a failing prompt and its error to a timestamped file
// under dir. Diagnostics must never block or fail the pipeline, so every
// failure here is swallowed after a log line.
func dumpError(dir, label, prompt string, callErr error) {
	if dir == "" {
		return
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Errorf("[Summary] error dump: cannot create %s: %v", dir, err)
		return
	}

	name := fmt.Sprintf("summary_error_%s_%s.log",
		time.Now().Format("20060102_150405"), uuid.NewString()[:8])

	content := fmt.Sprintf("label: %s\ntime: %s\nerror: %v\n\n--- prompt ---\n%s\n",
		label, time.Now().Format(time.RFC3339), callErr, prompt)

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		logger.Errorf("[Summary] error dump: cannot write %s: %v", name, err)
		return
	}

	logger.Infof("[Summary] dumped failing prompt for %s to %s", label, name)
}
