package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_study/internal/engine"
)

// Transcript strategies, cheapest and most reliable first:
//  1. json3            : /api/timedtext?fmt=json3 structured captions
//  2. page_scrape      : watch page → captionTracks → caption track markup
//  3. legacy_xml       : /api/timedtext legacy markup, English
//  4. multi_locale     : /api/timedtext legacy markup over configured locales
//  5. innertube_player : ANDROID /player → captionTracks (optional)
//  6. engagement_panel : WEB /next → /get_transcript (optional)

// Strategies returns the enabled strategies in the order the fetcher must try them.
func (y *YouTube) Strategies() []Strategy {
	s := []Strategy{
		{Name: engine.StrategyJSON3, Fetch: y.fetchJSON3},
		{Name: engine.StrategyPageScrape, Fetch: y.fetchPageScrape},
		{Name: engine.StrategyLegacyXML, Fetch: y.fetchLegacyXML},
		{Name: engine.StrategyMultiLocale, Fetch: y.fetchMultiLocale},
	}
	if y.innertube {
		s = append(s,
			Strategy{Name: engine.StrategyInnertubePlayer, Fetch: y.fetchInnertubePlayer},
			Strategy{Name: engine.StrategyEngagementPanel, Fetch: y.fetchEngagementPanel},
		)
	}
	return s
}

func (y *YouTube) timedTextURL(videoID, lang, format string) string {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)
	if format != "" {
		q.Set("fmt", format)
	}
	return y.baseURL + ytTimedTextPath + "?" + q.Encode()
}

// --- 1. json3 ---

func (y *YouTube) fetchJSON3(ctx context.Context, videoID string) (string, error) {
	body, err := y.get(ctx, y.timedTextURL(videoID, "en", "json3"), nil, maxCaptionBytes)
	if err != nil {
		return "", err
	}
	var doc ytJSON3
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("decode json3: %w", err)
	}
	return joinJSON3(doc)
}

// joinJSON3 concatenates segments within an event and joins events with spaces.
func joinJSON3(doc ytJSON3) (string, error) {
	parts := make([]string, 0, len(doc.Events))
	for _, ev := range doc.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		parts = append(parts, sb.String())
	}
	text := engine.CollapseSpaces(strings.Join(parts, " "))
	if text == "" {
		return "", errors.New("no transcript data in json3 response")
	}
	return text, nil
}

// --- 2. page scrape ---

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// captionTracksRe is the raw-HTML fallback when the player response cannot be parsed.
var captionTracksRe = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

func (y *YouTube) fetchPageScrape(ctx context.Context, videoID string) (string, error) {
	h := engine.BrowserHeaders()
	h.Set("Accept-Language", "en-US,en;q=0.9")

	page, err := y.getPage(ctx, y.baseURL+"/watch?v="+url.QueryEscape(videoID), h)
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}

	tracks, err := captionTracksFromPage(page)
	if err != nil {
		return "", err
	}
	track, ok := pickEnglishTrack(tracks, y.locales)
	if !ok {
		return "", errors.New("no English caption track")
	}
	return y.fetchTrack(ctx, track.BaseURL)
}

// captionTracksFromPage finds caption tracks in a watch page, preferring the
// parsed ytInitialPlayerResponse and falling back to a raw captionTracks match.
func captionTracksFromPage(page []byte) ([]captionTrack, error) {
	if data := playerResponseJSON(page); data != nil {
		var pr playerResp
		if err := json.Unmarshal(data, &pr); err == nil {
			if tracks := pr.tracks(); len(tracks) > 0 {
				return tracks, nil
			}
		}
	}

	m := captionTracksRe.FindSubmatch(page)
	if m == nil {
		return nil, errors.New("no captions found in watch page")
	}
	var tracks []captionTrack
	if err := json.Unmarshal(m[1], &tracks); err != nil {
		return nil, fmt.Errorf("decode captionTracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, errors.New("no caption tracks in watch page")
	}
	return tracks, nil
}

// playerResponseJSON walks the page's <script> elements and returns the
// ytInitialPlayerResponse object, or nil.
func playerResponseJSON(page []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(page))
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			text := z.Text()
			idx := bytes.Index(text, []byte(ytInitialPlayerResponseMarker))
			if idx < 0 {
				continue
			}
			if data := engine.ExtractJSON(text[idx+len(ytInitialPlayerResponseMarker):]); data != nil {
				return bytes.Clone(data)
			}
		}
	}
}

// pickEnglishTrack prefers a manual track in a preferred locale, then an
// auto-generated one, then any track whose language starts with "en".
// Tracks that need a browser PoToken are skipped.
func pickEnglishTrack(tracks []captionTrack, locales []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	for _, lang := range locales {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range locales {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return captionTrack{}, false
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// fetchTrack downloads a caption track and decodes it line by line.
func (y *YouTube) fetchTrack(ctx context.Context, trackURL string) (string, error) {
	body, err := y.get(ctx, trackURL, nil, maxCaptionBytes)
	if err != nil {
		return "", fmt.Errorf("caption track: %w", err)
	}
	text, err := parseTimedTextLines(body)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("empty caption track")
	}
	return text, nil
}

// parseTimedTextLines decodes each <text> element with the caption markup
// rule and joins the non-empty lines with single spaces.
func parseTimedTextLines(body []byte) (string, error) {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	var tt ytTimedText
	if err := d.Decode(&tt); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}
	lines := make([]string, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		if text := engine.DecodeCaptionMarkup(line.Text); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, " "), nil
}

// --- 3. legacy markup ---

func (y *YouTube) fetchLegacyXML(ctx context.Context, videoID string) (string, error) {
	return y.fetchLegacy(ctx, videoID, "en")
}

func (y *YouTube) fetchLegacy(ctx context.Context, videoID, lang string) (string, error) {
	body, err := y.get(ctx, y.timedTextURL(videoID, lang, ""), nil, maxCaptionBytes)
	if err != nil {
		return "", err
	}
	text := engine.DecodeCaptionMarkup(string(body))
	if n := engine.RuneLen(text); n < y.minChars {
		return "", fmt.Errorf("transcript too short for lang %s (%d chars)", lang, n)
	}
	return text, nil
}

// --- 4. multi-locale ---

func (y *YouTube) fetchMultiLocale(ctx context.Context, videoID string) (string, error) {
	var lastErr error
	for _, lang := range y.locales {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		text, err := y.fetchLegacy(ctx, videoID, lang)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no locales configured")
	}
	return "", fmt.Errorf("all locales failed: %w", lastErr)
}

// --- 5. ANDROID player ---

func (y *YouTube) fetchInnertubePlayer(ctx context.Context, videoID string) (string, error) {
	h := http.Header{}
	h.Set("User-Agent", ytAndroidUA)
	h.Set("X-Youtube-Client-Name", "3")
	h.Set("X-Youtube-Client-Version", ytAndroidVersion)

	data, err := y.postInnerTube(ctx, ytPlayerPath, innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}, h)
	if err != nil {
		return "", err
	}

	var pr playerResp
	if err := json.Unmarshal(data, &pr); err != nil {
		return "", fmt.Errorf("decode player: %w", err)
	}
	tracks := pr.tracks()
	if len(tracks) == 0 {
		if pr.PlayabilityStatus != nil && pr.PlayabilityStatus.Reason != "" {
			return "", fmt.Errorf("captions unavailable: %s", pr.PlayabilityStatus.Reason)
		}
		return "", errors.New("no caption tracks in player response")
	}
	track, ok := pickEnglishTrack(tracks, y.locales)
	if !ok {
		return "", errors.New("no usable English caption track")
	}
	return y.fetchTrack(ctx, track.BaseURL)
}

// --- 6. engagement panel ---

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	m := getTranscriptRE.FindSubmatch(data)
	if len(m) < 2 {
		return "", errors.New("getTranscriptEndpoint not found in engagement panels")
	}
	// /next returns the params URL-encoded; /get_transcript expects raw base64.
	decoded, err := url.QueryUnescape(string(m[1]))
	if err != nil {
		return string(m[1]), nil
	}
	return decoded, nil
}

// parseTranscriptSegments extracts plain text from a /get_transcript JSON response.
func parseTranscriptSegments(resp ytGetTranscriptResp) string {
	var parts []string
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				if run.Text != "" {
					parts = append(parts, run.Text)
				}
			}
		}
	}
	return engine.CollapseSpaces(strings.Join(parts, " "))
}

func (y *YouTube) fetchEngagementPanel(ctx context.Context, videoID string) (string, error) {
	visitorData := generateVisitorData()
	h := y.webHeaders(visitorData)

	nextData, err := y.postInnerTube(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData),
	}, h)
	if err != nil {
		return "", fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}

	transcriptData, err := y.postInnerTube(ctx, ytGetTranscriptPath, map[string]any{
		"params":  token,
		"context": ytWebContext(visitorData),
	}, h)
	if err != nil {
		return "", fmt.Errorf("/get_transcript: %w", err)
	}

	var tr ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &tr); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	text := parseTranscriptSegments(tr)
	if text == "" {
		return "", errors.New("empty transcript segments")
	}
	return text, nil
}
