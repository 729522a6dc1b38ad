package imagemeta

import (
	"regexp"
	"strconv"
	"strings"
)

// xmpFields carries the values scraped out of an image's XMP packet.
type xmpFields struct {
	altitude *float64
	rotation *Euler
}

// DJI writes gimbal pose and relative altitude as drone-dji attributes;
// Sentera sensors use the Camera namespace. Values appear in attribute
// form, so a scan beats a full XML parse.
var (
	djiAltitudeRe = regexp.MustCompile(`drone-dji:RelativeAltitude\s*=\s*"([^"]*)"`)
	djiRollRe     = regexp.MustCompile(`drone-dji:GimbalRollDegree\s*=\s*"([^"]*)"`)
	djiPitchRe    = regexp.MustCompile(`drone-dji:GimbalPitchDegree\s*=\s*"([^"]*)"`)
	djiYawRe      = regexp.MustCompile(`drone-dji:GimbalYawDegree\s*=\s*"([^"]*)"`)

	cameraAltitudeRe = regexp.MustCompile(`Camera:AboveGroundAltitude\s*=\s*"([^"]*)"`)
	cameraRollRe     = regexp.MustCompile(`Camera:Roll\s*=\s*"([^"]*)"`)
	cameraPitchRe    = regexp.MustCompile(`Camera:Pitch\s*=\s*"([^"]*)"`)
	cameraYawRe      = regexp.MustCompile(`Camera:Yaw\s*=\s*"([^"]*)"`)
)

func scanXMP(data []byte) xmpFields {
	var out xmpFields

	if v, ok := xmpFloat(djiAltitudeRe, data); ok {
		out.altitude = &v
	} else if v, ok := xmpFloat(cameraAltitudeRe, data); ok {
		out.altitude = &v
	}

	// DJI gimbal pitch is -90 at nadir; normalize so zero points down.
	if roll, ok := xmpFloat(djiRollRe, data); ok {
		pitch, pitchOK := xmpFloat(djiPitchRe, data)
		yaw, yawOK := xmpFloat(djiYawRe, data)
		if pitchOK && yawOK {
			out.rotation = &Euler{Roll: roll, Pitch: pitch + 90, Yaw: yaw}
		}
	} else if roll, ok := xmpFloat(cameraRollRe, data); ok {
		pitch, pitchOK := xmpFloat(cameraPitchRe, data)
		yaw, yawOK := xmpFloat(cameraYawRe, data)
		if pitchOK && yawOK {
			out.rotation = &Euler{Roll: roll, Pitch: pitch, Yaw: yaw}
		}
	}

	return out
}

func xmpFloat(re *regexp.Regexp, data []byte) (float64, bool) {
	match := re.FindSubmatch(data)
	if match == nil {
		return 0, false
	}
	return parseXMPNumber(string(match[1]))
}

// parseXMPNumber handles the decimal ("+24.50") and rational ("2450/100")
// value forms vendors use.
func parseXMPNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if num, den, found := strings.Cut(s, "/"); found {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
