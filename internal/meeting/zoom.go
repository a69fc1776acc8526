package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kassslll/learnhub/internal/logger"
)

type Kind string

const (
	KindInstant   Kind = "instant"
	KindScheduled Kind = "scheduled"
)

const DefaultTopic = "Instant Meeting"

type Request struct {
	Topic     string
	Kind      Kind
	StartTime *time.Time
}

type Meeting struct {
	JoinURL   string     `json:"meetingLink"`
	MeetingID string     `json:"meetingId"`
	Topic     string     `json:"topic"`
	StartTime *time.Time `json:"startTime,omitempty"`
}

type Provider interface {
	CreateMeeting(ctx context.Context, req Request) (*Meeting, error)
}

// Normalize applies the default topic and checks the kind/start time pair.
func (r Request) Normalize() (Request, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		r.Topic = DefaultTopic
	}
	switch r.Kind {
	case "", KindInstant:
		r.Kind = KindInstant
		r.StartTime = nil
	case KindScheduled:
		if r.StartTime == nil || r.StartTime.IsZero() {
			return r, errors.New("scheduled meeting requires a start time")
		}
	default:
		return r, fmt.Errorf("invalid meeting type %q", r.Kind)
	}
	return r, nil
}

const (
	zoomTokenURL = "https://zoom.us/oauth/token"
	zoomAPIBase  = "https://api.zoom.us/v2"
)

type zoomProvider struct {
	log     *logger.Logger
	http    *http.Client
	baseURL string
}

// NewZoom authenticates with Zoom's server-to-server OAuth (account_credentials grant).
func NewZoom(log *logger.Logger, clientID, clientSecret, accountID string) (Provider, error) {
	if clientID == "" || clientSecret == "" || accountID == "" {
		return nil, errors.New("missing ZOOM_CLIENT_ID, ZOOM_CLIENT_SECRET or ZOOM_ACCOUNT_ID")
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     zoomTokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {accountID},
		},
	}
	httpClient := cc.Client(context.Background())
	httpClient.Timeout = 30 * time.Second
	return newZoomProvider(log, httpClient, zoomAPIBase), nil
}

func newZoomProvider(log *logger.Logger, httpClient *http.Client, baseURL string) *zoomProvider {
	return &zoomProvider{
		log:     log.With("client", "ZoomProvider"),
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type zoomCreateRequest struct {
	Topic     string `json:"topic"`
	Type      int    `json:"type"`
	StartTime string `json:"start_time,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Settings  struct {
		JoinBeforeHost bool `json:"join_before_host"`
		WaitingRoom    bool `json:"waiting_room"`
	} `json:"settings"`
}

type zoomCreateResponse struct {
	ID        int64  `json:"id"`
	JoinURL   string `json:"join_url"`
	Topic     string `json:"topic"`
	StartTime string `json:"start_time"`
}

func (z *zoomProvider) CreateMeeting(ctx context.Context, req Request) (*Meeting, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	body := zoomCreateRequest{Topic: req.Topic, Type: 1}
	if req.Kind == KindScheduled {
		body.Type = 2
		body.StartTime = req.StartTime.UTC().Format(time.RFC3339)
		body.Timezone = "UTC"
	}
	body.Settings.JoinBeforeHost = true

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, z.baseURL+"/users/me/meetings", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := z.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("zoom create meeting: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		z.log.Warn("zoom rejected meeting", "status", resp.StatusCode, "topic", req.Topic)
		return nil, fmt.Errorf("zoom http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out zoomCreateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("zoom decode: %w", err)
	}

	m := &Meeting{JoinURL: out.JoinURL, MeetingID: strconv.FormatInt(out.ID, 10), Topic: out.Topic}
	if t, err := time.Parse(time.RFC3339, out.StartTime); err == nil {
		m.StartTime = &t
	} else if req.StartTime != nil {
		m.StartTime = req.StartTime
	}
	return m, nil
}
