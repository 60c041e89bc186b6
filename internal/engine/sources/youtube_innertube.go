package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_study/internal/engine"
)

// YouTube Innertube/timedtext: client, constants, types, and HTTP primitives.
// Strategy logic lives in youtube_transcript.go.

const (
	ytPlayerPath        = "/youtubei/v1/player"
	ytNextPath          = "/youtubei/v1/next"
	ytGetTranscriptPath = "/youtubei/v1/get_transcript"
	ytTimedTextPath     = "/api/timedtext"
	ytWebVersion        = "2.20250222.10.00"
	ytAndroidVersion    = "20.10.38"
	ytAndroidUA         = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"

	maxCaptionBytes   = 2 * 1024 * 1024
	maxWatchPageBytes = 6 * 1024 * 1024
)

// YouTube talks to the video platform. Every outbound call waits on a shared
// token-bucket limiter and runs under its own short timeout.
type YouTube struct {
	baseURL     string
	client      *http.Client
	browser     *engine.BrowserClient // optional, watch page only
	limiter     *rate.Limiter // nil = unlimited
	callTimeout time.Duration
	minChars    int
	locales     []string
	innertube   bool
}

// NewYouTube builds a client from cfg, filling zero fields with defaults.
func NewYouTube(cfg engine.Config) *YouTube {
	y := &YouTube{
		baseURL:     strings.TrimRight(cfg.YouTubeBaseURL, "/"),
		client:      cfg.HTTPClient,
		browser:     cfg.BrowserClient,
		callTimeout: cfg.TranscriptCallTimeout,
		minChars:    cfg.TranscriptMinChars,
		locales:     cfg.TranscriptLocales,
		innertube:   cfg.InnertubeFallback,
	}
	if y.baseURL == "" {
		y.baseURL = engine.DefaultYouTubeBaseURL
	}
	if y.client == nil {
		y.client = &http.Client{}
	}
	if y.callTimeout <= 0 {
		y.callTimeout = engine.DefaultTranscriptCallTimeout
	}
	if y.minChars <= 0 {
		y.minChars = engine.DefaultTranscriptMinChars
	}
	if len(y.locales) == 0 {
		y.locales = engine.DefaultTranscriptLocales
	}
	if cfg.YouTubeRPS > 0 {
		burst := cfg.YouTubeBurst
		if burst <= 0 {
			burst = 1
		}
		y.limiter = rate.NewLimiter(rate.Limit(cfg.YouTubeRPS), burst)
	}
	return y
}

// get performs one rate-limited GET under the per-call timeout.
func (y *YouTube) get(ctx context.Context, rawURL string, header http.Header, limit int64) ([]byte, error) {
	return y.do(ctx, http.MethodGet, rawURL, nil, header, limit)
}

func (y *YouTube) do(ctx context.Context, method, rawURL string, body []byte, header http.Header, limit int64) ([]byte, error) {
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, y.callTimeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &engine.HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// getPage fetches an HTML page, through the TLS-fingerprinted browser client when configured.
func (y *YouTube) getPage(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	if y.browser == nil {
		return y.get(ctx, rawURL, header, maxWatchPageBytes)
	}
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, y.callTimeout)
	defer cancel()

	data, status, err := y.browser.Get(ctx, rawURL, header, maxWatchPageBytes)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &engine.HTTPStatusError{StatusCode: status}
	}
	return data, nil
}

// postInnerTube POSTs a JSON payload to an Innertube endpoint.
func (y *YouTube) postInnerTube(ctx context.Context, path string, payload any, header http.Header) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")
	data, err := y.do(ctx, http.MethodPost, y.baseURL+path+"?prettyPrint=false", bodyBytes, h, 3*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("innertube [%s]: %w", path, err)
	}
	return data, nil
}

// webHeaders are sent with WEB client Innertube calls.
func (y *YouTube) webHeaders(visitorData string) http.Header {
	h := http.Header{}
	h.Set("Accept", "*/*")
	h.Set("User-Agent", engine.RandomUserAgent())
	h.Set("X-Youtube-Client-Name", "1")
	h.Set("X-Youtube-Client-Version", ytWebVersion)
	h.Set("X-Goog-Visitor-Id", visitorData)
	h.Set("Origin", y.baseURL)
	h.Set("Referer", y.baseURL+"/")
	return h
}

// --- ANDROID client types (/player endpoint) ---

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

// playerResp is shared by the /player endpoint and the watch page's ytInitialPlayerResponse.
type playerResp struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

func (p playerResp) tracks() []captionTrack {
	if p.Captions == nil {
		return nil
	}
	return p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// --- WEB client types (/next and /get_transcript endpoints) ---

type ytWebClientCtx struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	VisitorData   string `json:"visitorData,omitempty"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

type ytWebUser struct {
	EnableSafetyMode bool `json:"enableSafetyMode"`
}

type ytWebReqCtx struct {
	UseSsl bool `json:"useSsl"`
}

// --- Caption payloads ---

// ytTimedText is the legacy timedtext XML document.
type ytTimedText struct {
	Lines []ytLine `xml:"text"`
}

type ytLine struct {
	Text string `xml:",innerxml"`
}

// ytJSON3 is the fmt=json3 structured-captions document.
type ytJSON3 struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// --- /get_transcript response ---

type ytGetTranscriptResp struct {
	Actions []struct {
		UpdateEngagementPanelAction *struct {
			Content struct {
				TranscriptRenderer struct {
					Content struct {
						TranscriptSearchPanelRenderer struct {
							Body struct {
								TranscriptSegmentListRenderer struct {
									InitialSegments []struct {
										TranscriptSegmentRenderer *struct {
											Snippet struct {
												Runs []struct {
													Text string `json:"text"`
												} `json:"runs"`
											} `json:"snippet"`
										} `json:"transcriptSegmentRenderer"`
									} `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

// generateVisitorData creates a random 11-char visitor ID for Innertube requests.
func generateVisitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

// ytWebContext builds the standard WEB client context for Innertube payloads.
func ytWebContext(visitorData string) map[string]any {
	return map[string]any{
		"client": ytWebClientCtx{
			ClientName:    "WEB",
			ClientVersion: ytWebVersion,
			VisitorData:   visitorData,
			Hl:            "en",
			Gl:            "US",
		},
		"user":    ytWebUser{EnableSafetyMode: false},
		"request": ytWebReqCtx{UseSsl: true},
	}
}
