package adb

import (
	"regexp"
	"strings"

	"github.com/aretw0/nkas/pkg/domain"
)

// transientMarkers are adb messages fixed by dropping and re-acquiring the connection.
var transientMarkers = []string{
	"no devices/emulators found", // adb server restarted and lost the device
	"timeout",                    // adb read timeout
	"closed",                     // usually follows a read timeout
	"device offline",             // wireless device dropped but still listed
	"is offline",
	"unknown host service", // another adb server version took over
	"connection reset",
	"broken pipe",
	"cannot connect",
	"failed to connect",
	"connection refused",
}

// fatalMarkers need an operator: nothing on this side can fix them.
var fatalMarkers = []string{
	"unauthorized",
	"no permissions",
	"insufficient permissions",
}

// deviceNotFound matches adb's own "device 'SERIAL' not found", not a shell "cmd: not found".
var deviceNotFound = regexp.MustCompile(`device( '[^']*')? not found`)

// classifyOutput maps adb error text to a failure class.
func classifyOutput(text string) domain.FailureClass {
	lower := strings.ToLower(text)
	for _, m := range fatalMarkers {
		if strings.Contains(lower, m) {
			return domain.Fatal
		}
	}
	if deviceNotFound.MatchString(lower) {
		return domain.Transient
	}
	for _, m := range transientMarkers {
		if strings.Contains(lower, m) {
			return domain.Transient
		}
	}
	return domain.Protocol
}
