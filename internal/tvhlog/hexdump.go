package tvhlog

import (
	"fmt"
	"strings"
)

// HexDump logs data 16 bytes per row ("offset  hex bytes  ascii"),
// re-entering the normal Log pipeline one row at a time so a dump competes
// for queue space like any other message instead of bypassing the gate.
func (l *Logger) HexDump(subsys string, severity Severity, prefix string, data []byte) {
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]
		l.Log("", 0, false, severity, subsys, "%s", formatHexRow(prefix, off, row))
	}
}

func formatHexRow(prefix string, offset int, row []byte) string {
	var hex strings.Builder
	var ascii strings.Builder
	for i := 0; i < 16; i++ {
		if i < len(row) {
			fmt.Fprintf(&hex, "%02x ", row[i])
			if row[i] >= 0x20 && row[i] < 0x7f {
				ascii.WriteByte(row[i])
			} else {
				ascii.WriteByte('.')
			}
		} else {
			hex.WriteString("   ")
		}
		if i == 7 {
			hex.WriteByte(' ')
		}
	}
	if prefix != "" {
		return fmt.Sprintf("%s %08x  %s %s", prefix, offset, hex.String(), ascii.String())
	}
	return fmt.Sprintf("%08x  %s %s", offset, hex.String(), ascii.String())
}
