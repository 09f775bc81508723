// Package titleparser turns a raw torrent/file name into structured
// metadata. It keeps the teacher's scanning-parser design: a slice of
// small matcher functions, each given the whole title and a pointer to the
// in-progress result, returns the left-most string index it matched (or -1
// for no match). Parse takes the minimum of all returned indices as the
// boundary of the clean title prefix, so whichever tag occurs earliest in
// the string wins the cut. On fully ambiguous input every matcher returns
// -1 and Title is the whole string with its separators collapsed: the
// parser never fails.
package titleparser

import (
	"regexp"
	"strconv"
	"strings"
)

// MetaInfo is the structured result of Parse.
type MetaInfo struct {
	Resolution int
	Year       int
	Quality    string
	Codec      string
	Audio      []string
	Channels   []string
	HDR        []string
	Languages  []string
	Container  string
	ThreeD     bool
	Remux      bool
	Proper     bool
	Repack     bool
	Extended   bool
	Dubbed     bool
	Subbed     bool
	Complete   bool
	Seasons    []int
	Episodes   []int
	ReleaseGroup string
	Title      string
}

// FromSeason and ToSeason mirror the inclusive season range the teacher's
// original MetaInfo exposed, derived from Seasons.
func (m *MetaInfo) FromSeason() int {
	if len(m.Seasons) == 0 {
		return 0
	}
	return m.Seasons[0]
}

func (m *MetaInfo) ToSeason() int {
	if len(m.Seasons) == 0 {
		return 0
	}
	return m.Seasons[len(m.Seasons)-1]
}

var parsers = []func(string, *MetaInfo) int{
	parseYear(`(?:\b((?:19[0-9]|20[0-9])[0-9])\b)|(?:\(((?:19[0-9]|20[0-9])[0-9])\))`),
	parseResolution(`(?i)([0-9]{3,4})[pi]`),
	matchAndSetResolution(`(?i)\b(4k|2160p)\b`, 2160),
	matchAndSetResolution(`(?i)\buhd\b`, 2160),
	matchAndSetResolution(`(?i)\bfhd\b`, 1080),
	matchAndSetQuality(`(?i)\b(?:HD-?)?CAM(?:rip)?\b`, "cam"),
	matchAndSetQuality(`(?i)\b(?:HD-?)?T(?:ELE)?S(?:YNC)?\b`, "telesync"),
	matchAndSetQuality(`(?i)\bTS-?Rip\b`, "telesync"),
	matchAndSetQuality(`(?i)\bT(?:ELE)?C(?:INE)?\b`, "telecine"),
	matchAndSetQuality(`(?i)\b(?:DVD)?SCR\b`, "scr"),
	parseQuality(`(?i)\bHD-?Rip\b`),
	parseQuality(`(?i)\bBRRip\b`),
	parseQuality(`(?i)\bBDRip\b`),
	parseQuality(`(?i)\bUHDRip\b`),
	parseQuality(`(?i)\bDVDRip\b`),
	matchAndSetQuality(`(?i)\bDVD(?:R[0-9])?\b`, "dvd"),
	parseQuality(`(?i)\b(?:HD-?)?TVRip\b`),
	parseQuality(`(?i)\bPDTV\b`),
	parseQuality(`(?i)\bSATRip\b`),
	parseQuality(`(?i)\bPPVRip\b`),
	matchAndSetQuality(`(?i)\bBlu-?ray(?:[\s.]|.+\b)Remux\b`, "remux"),
	matchAndSetQuality(`(?i)\bBlu-?ray\b`, "bluray"),
	parseQuality(`(?i)\bWEBMux\b`),
	parseQuality(`(?i)\bWEB-?DL\b`),
	parseQuality(`(?i)\bWEB-?Rip\b`),
	matchAndSetQuality(`(?i)\b(?:DL|WEB|BD|BR)REMUX\b`, "remux"),
	parseQuality(`(?i)HDTV`),
	parseCodec(`(?i)dvix|mpeg2|divx|xvid|[xh][-. ]?26[45]|avc|hevc|av1`),
	appendAudio(`(?i)\bDTS(?:-HD)?\b`, "dts"),
	appendAudio(`(?i)\bTrueHD\b`, "truehd"),
	appendAudio(`(?i)\bAtmos\b`, "atmos"),
	appendAudio(`(?i)\bFLAC\b`, "flac"),
	appendAudio(`(?i)\bMP3\b`, "mp3"),
	appendAudio(`(?i)\bAC-?3\b`, "ac3"),
	appendAudio(`(?i)\bDD5[. ]?1\b`, "dd5.1"),
	appendAudio(`(?i)\bAAC(?:[. ]?2[. ]0)?\b`, "aac"),
	appendAudio(`(?i)\b(?:Multi|Dual)[- ]?Audio\b`, "multi-audio"),
	appendHDR(`(?i)\bHDR10\+\b`, "HDR10+"),
	appendHDR(`(?i)\bHDR10\b`, "HDR10"),
	appendHDR(`(?i)\bHDR\b`, "HDR"),
	appendHDR(`(?i)\bDolby[. ]?Vision\b|\bDV\b`, "DV"),
	appendChannels(`\b([257]\.[01](?:\.[0-9])?)\b`),
	parseContainer(`(?i)\b(MKV|AVI|MP4)\b`),
	parseFlag(`(?i)\b(3D)\b`, setThreeD),
	parseFlag(`(?i)\bproper\b`, setProper),
	parseFlag(`(?i)\brepack\b`, setRepack),
	parseFlag(`(?i)\bextended\b`, setExtended),
	parseFlag(`(?i)\bdubbed\b`, setDubbed),
	parseFlag(`(?i)\bsubbed\b|\bsub\b`, setSubbed),
	parseFlag(`(?i)\b(?:complete|full)[- ]?(?:series|season)?\b`, setComplete),
	parseSeasonEpisodeList(`(?i)S(\d{1,2})[\s.\-]?E(\d{1,3})\b`),
	parseSeasonRange(`(?i)S(\d{1,2})\s*(?:to|-)\s*S?(\d{1,2})\b`),
	parseSeasonRange(`(?i)\bseason\s+(\d{1,2})[\s-]+(\d{1,2})\b`),
	parseSingleSeason(`(?i)\bs(\d{1,2})\b`),
	parseSingleSeason(`(?i)\bseason[- ]?(\d{1,2})\b`),
	appendLanguage(`(?i)\bFR(?:ENCH)?\b`, "french"),
	appendLanguage(`(?i)\bENG(?:LISH)?\b`, "english"),
	appendLanguage(`(?i)\bGER(?:MAN)?\b`, "german"),
	appendLanguage(`(?i)\bITA(?:LIAN)?\b`, "italian"),
	appendLanguage(`(?i)\bESP(?:ANOL)?|SPANISH|CASTELLANO\b`, "spanish"),
	appendLanguage(`(?i)\bHINDI\b`, "hindi"),
	appendLanguage(`(?i)\bTAMIL\b`, "tamil"),
	appendLanguage(`(?i)\bTELUGU\b`, "telugu"),
	appendLanguage(`(?i)\bMALAYALAM\b`, "malayalam"),
	appendLanguage(`(?i)\bKOREAN\b`, "korean"),
	appendLanguage(`(?i)\bJAPANESE|JPN\b`, "japanese"),
	appendLanguage(`(?i)\bRUSSIAN|RUS\b`, "russian"),
	parseReleaseGroup(`-([A-Za-z0-9]+)$`),
	parseFillerWords(`(?i)[-\s.(]+\b(?:TV|Complete|Full) series\b`),
}

// Parse implements the title-parser contract: pure, deterministic, never
// fails. Clean title is the original title truncated at the earliest index
// any matcher claimed, with runs of '.', '_', '-' and whitespace collapsed
// to single spaces.
func Parse(title string) *MetaInfo {
	m := &MetaInfo{}
	index := len(title)

	for _, parser := range parsers {
		nextIndex := parser(title, m)
		if nextIndex >= 0 && nextIndex < index {
			index = nextIndex
		}
	}

	if index < 0 {
		index = 0
	}
	m.Title = strings.TrimSpace(titleSeparatorRun.ReplaceAllString(title[0:index], " "))

	return m
}

var titleSeparatorRun = regexp.MustCompile(`[._\s-]+`)

func findValue(value *string, title string, regex *regexp.Regexp) int {
	if *value != "" {
		return -1
	}

	matches := regex.FindAllStringIndex(title, -1)
	if len(matches) > 0 {
		loc := matches[len(matches)-1]
		*value = strings.ToLower(title[loc[len(loc)-2]:loc[len(loc)-1]])
		return loc[0]
	}

	return -1
}

func findSubValue(value *string, title string, regex *regexp.Regexp) int {
	if *value != "" {
		return -1
	}

	matches := regex.FindAllStringSubmatchIndex(title, -1)
	if len(matches) > 0 && len(matches[len(matches)-1]) > 3 {
		loc := matches[len(matches)-1]
		*value = strings.ToLower(title[loc[2]:loc[3]])
		return loc[0]
	}

	return -1
}

func findAndSet(value *string, title string, regex *regexp.Regexp, target string) int {
	if *value != "" {
		return -1
	}

	matches := regex.FindAllStringIndex(title, -1)
	if len(matches) > 0 {
		loc := matches[len(matches)-1]
		*value = target
		return loc[0]
	}

	return -1
}

func parseYear(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		if mi.Year > 0 {
			return -1
		}

		var year string
		index := findValue(&year, title, compiled)
		if index != -1 {
			mi.Year, _ = strconv.Atoi(year)
		}

		return index
	}
}

func parseResolution(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		if mi.Resolution > 0 {
			return -1
		}

		var resolution string
		index := findSubValue(&resolution, title, compiled)
		if index != -1 {
			mi.Resolution, _ = strconv.Atoi(resolution)
		}

		return index
	}
}

func matchAndSetResolution(pattern string, value int) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		if mi.Resolution > 0 {
			return -1
		}

		var resolution string
		index := findValue(&resolution, title, compiled)
		if index != -1 {
			mi.Resolution = value
		}

		return index
	}
}

func parseQuality(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		return findValue(&mi.Quality, title, compiled)
	}
}

func matchAndSetQuality(pattern string, value string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		return findAndSet(&mi.Quality, title, compiled, value)
	}
}

func parseCodec(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		index := findValue(&mi.Codec, title, compiled)
		if index != -1 {
			mi.Codec = strings.ReplaceAll(mi.Codec, ".", "")
			mi.Codec = strings.ReplaceAll(mi.Codec, "-", "")
			mi.Codec = strings.ReplaceAll(mi.Codec, " ", "")
		}
		return index
	}
}

// appendAudio, appendHDR, appendChannels and appendLanguage collect into
// slices instead of a single overwrite-once field, since a release can
// legitimately carry more than one audio track, HDR flavor or language.
func appendAudio(pattern, tag string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		loc := compiled.FindStringIndex(title)
		if loc == nil {
			return -1
		}
		mi.Audio = append(mi.Audio, tag)
		return loc[0]
	}
}

func appendHDR(pattern, tag string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		loc := compiled.FindStringIndex(title)
		if loc == nil {
			return -1
		}
		mi.HDR = append(mi.HDR, tag)
		return loc[0]
	}
}

func appendChannels(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		first := -1
		for _, loc := range compiled.FindAllStringIndex(title, -1) {
			mi.Channels = append(mi.Channels, title[loc[0]:loc[1]])
			if first == -1 {
				first = loc[0]
			}
		}
		return first
	}
}

func appendLanguage(pattern, tag string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		loc := compiled.FindStringIndex(title)
		if loc == nil {
			return -1
		}
		for _, l := range mi.Languages {
			if l == tag {
				return loc[0]
			}
		}
		mi.Languages = append(mi.Languages, tag)
		return loc[0]
	}
}

func parseContainer(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		return findValue(&mi.Container, title, compiled)
	}
}

func parseFlag(pattern string, set func(*MetaInfo, bool)) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		loc := compiled.FindStringIndex(title)
		if loc == nil {
			return -1
		}
		set(mi, true)
		return loc[0]
	}
}

func setThreeD(mi *MetaInfo, v bool)   { mi.ThreeD = v }
func setProper(mi *MetaInfo, v bool)   { mi.Proper = v }
func setRepack(mi *MetaInfo, v bool)   { mi.Repack = v }
func setExtended(mi *MetaInfo, v bool) { mi.Extended = v }
func setDubbed(mi *MetaInfo, v bool)   { mi.Dubbed = v }
func setSubbed(mi *MetaInfo, v bool)   { mi.Subbed = v }
func setComplete(mi *MetaInfo, v bool) { mi.Complete = v }

func parseSeasonEpisodeList(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		if len(mi.Seasons) > 0 {
			return -1
		}

		matches := compiled.FindAllStringSubmatchIndex(title, -1)
		if len(matches) == 0 {
			return -1
		}

		first := -1
		for _, loc := range matches {
			if len(loc) < 6 {
				continue
			}
			s, _ := strconv.Atoi(title[loc[2]:loc[3]])
			e, _ := strconv.Atoi(title[loc[4]:loc[5]])
			mi.Seasons = appendUnique(mi.Seasons, s)
			mi.Episodes = appendUnique(mi.Episodes, e)
			if first == -1 {
				first = loc[0]
			}
		}
		return first
	}
}

func parseSeasonRange(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		if len(mi.Seasons) > 0 {
			return -1
		}

		matches := compiled.FindAllStringSubmatchIndex(title, -1)
		if len(matches) == 0 || len(matches[len(matches)-1]) < 6 {
			return -1
		}
		loc := matches[len(matches)-1]
		from, _ := strconv.Atoi(title[loc[2]:loc[3]])
		to, _ := strconv.Atoi(title[loc[4]:loc[5]])
		if to < from {
			from, to = to, from
		}
		for s := from; s <= to; s++ {
			mi.Seasons = append(mi.Seasons, s)
		}
		return loc[0]
	}
}

func parseSingleSeason(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		if len(mi.Seasons) > 0 {
			return -1
		}

		matches := compiled.FindAllStringSubmatchIndex(title, -1)
		if len(matches) == 0 || len(matches[len(matches)-1]) < 4 {
			return -1
		}
		loc := matches[len(matches)-1]
		s, _ := strconv.Atoi(title[loc[2]:loc[3]])
		mi.Seasons = []int{s}
		return loc[0]
	}
}

func parseReleaseGroup(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		if mi.ReleaseGroup != "" {
			return -1
		}
		loc := compiled.FindStringSubmatchIndex(title)
		if loc == nil || len(loc) < 4 {
			return -1
		}
		mi.ReleaseGroup = title[loc[2]:loc[3]]
		return loc[0]
	}
}

func parseFillerWords(pattern string) func(string, *MetaInfo) int {
	compiled := regexp.MustCompile(pattern)
	return func(title string, mi *MetaInfo) int {
		var filler string
		return findValue(&filler, title, compiled)
	}
}

func appendUnique(values []int, v int) []int {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

// qualityGroups maps a recognized quality tag to one of the four canonical
// quality groups a stream's Filter/Sort quality bucket is drawn from.
var qualityGroups = map[string]string{
	"bluray": "BluRay/UHD", "remux": "BluRay/UHD", "bdrip": "BluRay/UHD",
	"brrip": "BluRay/UHD", "uhdrip": "BluRay/UHD",
	"web-dl": "WEB/HD", "webdl": "WEB/HD", "webrip": "WEB/HD",
	"webmux": "WEB/HD", "hdrip": "WEB/HD", "hdtv": "WEB/HD",
	"dvd": "DVD/TV/SAT", "dvdrip": "DVD/TV/SAT", "satrip": "DVD/TV/SAT",
	"tvrip": "DVD/TV/SAT", "pdtv": "DVD/TV/SAT", "ppvrip": "DVD/TV/SAT",
	"cam": "CAM/Screener", "telesync": "CAM/Screener", "telecine": "CAM/Screener",
	"scr": "CAM/Screener",
}

// QualityGroup returns the canonical quality group for a recognized
// MetaInfo.Quality value, or "" if the tag is unrecognized.
func QualityGroup(quality string) string {
	return qualityGroups[strings.ToLower(quality)]
}

// resolutionLabels maps a MetaInfo.Resolution pixel height to the
// canonical string model.Stream.Resolution and the Filter/Sort Engine's
// SelectedResolutions carry (e.g. "1080p"; 2160 is labeled "4k" rather
// than "2160p" to match how releases and user preferences name it).
var resolutionLabels = map[int]string{
	2160: "4k",
	1440: "1440p",
	1080: "1080p",
	720:  "720p",
	576:  "576p",
	480:  "480p",
	360:  "360p",
	240:  "240p",
}

// ResolutionLabel returns the canonical resolution string for a parsed
// pixel height, or "" if the height is unrecognized or zero (unknown).
func ResolutionLabel(resolution int) string {
	return resolutionLabels[resolution]
}
