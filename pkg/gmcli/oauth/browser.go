package oauth

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/pkg/errors"
)

// OpenURL asks the desktop to open target. A browser named by $BROWSER is
// tried first, then the platform's default opener.
func OpenURL(target string) error {
	if target == "" {
		return errors.New("empty URL")
	}
	if preferred := os.Getenv("BROWSER"); preferred != "" {
		if err := exec.Command(preferred, target).Start(); err == nil {
			return nil
		}
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32.exe", "url.dll,FileProtocolHandler", target)
	case "darwin":
		cmd = exec.Command("open", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return errors.Wrap(cmd.Start(), "launching browser")
}
