package places

import (
	"strconv"
	"strings"
	"time"

	"github.com/carepath/carepath/internal/model"
)

// seoulLocation is the clock for all duty-hour decisions. The institution
// APIs report hours in Korean local time regardless of where this process
// runs.
var seoulLocation = loadSeoulLocation()

func loadSeoulLocation() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// Duty fields number days 1..7 for Monday..Sunday; slot 8 holds holiday
// hours.
const holidayDutyIndex = 8

func dutyDayIndex(w time.Weekday) int {
	if w == time.Sunday {
		return 7
	}
	return int(w)
}

// dutyWindow returns the raw open/close pair for a day index
func dutyWindow(item placeItem, dayIdx int) (string, string) {
	switch dayIdx {
	case 1:
		return string(item.DutyTime1S), string(item.DutyTime1C)
	case 2:
		return string(item.DutyTime2S), string(item.DutyTime2C)
	case 3:
		return string(item.DutyTime3S), string(item.DutyTime3C)
	case 4:
		return string(item.DutyTime4S), string(item.DutyTime4C)
	case 5:
		return string(item.DutyTime5S), string(item.DutyTime5C)
	case 6:
		return string(item.DutyTime6S), string(item.DutyTime6C)
	case 7:
		return string(item.DutyTime7S), string(item.DutyTime7C)
	case holidayDutyIndex:
		return string(item.DutyTime8S), string(item.DutyTime8C)
	default:
		return "", ""
	}
}

// parseHHMM parses a duty-hour value ("0900", "900", "2430") into an integer
// HHMM. Closing values past 2400 are how the dataset encodes past-midnight
// hours, so no upper bound is applied.
func parseHHMM(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// hhmmDisplay renders a 4-digit duty value as "HH:MM"; anything else renders
// as empty rather than a wrong time
func hhmmDisplay(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) != 4 {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return s[:2] + ":" + s[2:]
}

// openStateAt evaluates one duty window against a HHMM clock value. Both
// bounds are inclusive: a pharmacy closing at 2100 is still open at exactly
// 21:00. Missing or malformed windows are UNKNOWN, never guessed.
func openStateAt(item placeItem, dayIdx, nowHHMM int) (model.OpenState, string) {
	startRaw, closeRaw := dutyWindow(item, dayIdx)

	start, okStart := parseHHMM(startRaw)
	end, okEnd := parseHHMM(closeRaw)
	if !okStart || !okEnd {
		return model.OpenStateUnknown, ""
	}

	if nowHHMM >= start && nowHHMM <= end {
		return model.OpenStateOpen, hhmmDisplay(closeRaw)
	}
	return model.OpenStateClosed, ""
}

// emergencyOpenState evaluates an emergency room. An institution flagged
// dutyEryn=Y runs its ER around the clock; otherwise the regular duty
// window applies.
func emergencyOpenState(item placeItem, dayIdx, nowHHMM int) (model.OpenState, string) {
	if strings.EqualFold(strings.TrimSpace(item.DutyEryn), "Y") {
		return model.OpenStateOpen, ""
	}
	return openStateAt(item, dayIdx, nowHHMM)
}
