package dvr

import (
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hdhrcore/tvcore/internal/supervisor"
)

// PostProcTokens holds the substitution values for one finished recording,
// per spec §4.4: %f full path, %b basename, %c channel name, %C creator,
// %t title, %d description, %e error text, %S start epoch, %E stop epoch.
type PostProcTokens struct {
	FullPath    string
	Basename    string
	ChannelName string
	Creator     string
	Title       string
	Description string
	ErrorText   string
	Start       time.Time
	Stop        time.Time
}

func (t PostProcTokens) expand(token byte) (string, bool) {
	switch token {
	case 'f':
		return t.FullPath, true
	case 'b':
		return t.Basename, true
	case 'c':
		return t.ChannelName, true
	case 'C':
		return t.Creator, true
	case 't':
		return t.Title, true
	case 'd':
		return t.Description, true
	case 'e':
		return t.ErrorText, true
	case 'S':
		return strconv.FormatInt(t.Start.Unix(), 10), true
	case 'E':
		return strconv.FormatInt(t.Stop.Unix(), 10), true
	default:
		return "", false
	}
}

// expandTokens substitutes every recognized %x token in arg with its value
// from t; unrecognized sequences pass through unchanged.
func expandTokens(arg string, t PostProcTokens) string {
	var b strings.Builder
	for i := 0; i < len(arg); i++ {
		if arg[i] == '%' && i+1 < len(arg) {
			if v, ok := t.expand(arg[i+1]); ok {
				b.WriteString(v)
				i++
				continue
			}
		}
		b.WriteByte(arg[i])
	}
	return b.String()
}

// RunPostProcessor tokenizes command (quote/escape-aware, via
// supervisor.ParseCommand), substitutes every token in every argument, and
// spawns the result without waiting for its stdout, matching spec §4.4's
// "spawn without waiting for stdout". A nil/empty command is a no-op.
func RunPostProcessor(command string, t PostProcTokens) error {
	argv := supervisor.ParseCommand(command)
	if len(argv) == 0 {
		return nil
	}
	for i, a := range argv {
		argv[i] = expandTokens(a, t)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	return cmd.Start()
}
