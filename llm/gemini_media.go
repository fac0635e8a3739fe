package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultImagenModel    = "imagen-4.0-generate-preview-06-06"
	DefaultVeoModel       = "veo-2.0-generate-001"

	defaultVideoDuration = 5
	defaultPollInterval  = 10 * time.Second
)

// ErrMediaNotEnabled is returned when the API key is not allowed to use a media model
var ErrMediaNotEnabled = errors.New("gemini media generation is not enabled for this API key")

// GeminiMediaOptions configures a GeminiMedia client
type GeminiMediaOptions struct {
	APIKey       string
	Endpoint     string        // defaults to DefaultGeminiEndpoint
	PollInterval time.Duration // Veo operation polling, defaults to 10s
	Logger       hclog.Logger
}

// GeminiMedia calls the Imagen and Veo REST endpoints, which the generative-ai SDK does not cover
type GeminiMedia struct {
	apiKey       string
	endpoint     string
	pollInterval time.Duration
	http         *retryablehttp.Client
}

// NewGeminiMedia creates a media client. Requests retry up to 3 attempts with 2-10s backoff.
func NewGeminiMedia(opts GeminiMediaOptions) *GeminiMedia {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 2 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.Logger = nil
	if opts.Logger != nil {
		client.Logger = opts.Logger
	}

	m := &GeminiMedia{
		apiKey:       opts.APIKey,
		endpoint:     strings.TrimRight(opts.Endpoint, "/"),
		pollInterval: opts.PollInterval,
		http:         client,
	}
	if m.endpoint == "" {
		m.endpoint = DefaultGeminiEndpoint
	}
	if m.pollInterval <= 0 {
		m.pollInterval = defaultPollInterval
	}
	return m
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters map[string]any    `json:"parameters,omitempty"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

type operation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

// GenerateImage calls Imagen predict and returns the first image
func (m *GeminiMedia) GenerateImage(ctx context.Context, req *ImageRequest) (*GeneratedImage, error) {
	model := req.Model
	if model == "" {
		model = DefaultImagenModel
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}

	body := predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: map[string]any{
			"sampleCount":      1,
			"aspectRatio":      aspect,
			"personGeneration": "allow_adult",
		},
	}

	var resp imagenResponse
	if err := m.do(ctx, http.MethodPost, fmt.Sprintf("%s/models/%s:predict", m.endpoint, model), body, &resp); err != nil {
		return nil, fmt.Errorf("imagen predict: %w", err)
	}
	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return nil, errors.New("imagen returned no images")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding imagen output: %w", err)
	}
	mime := resp.Predictions[0].MimeType
	if mime == "" {
		mime = "image/png"
	}
	return &GeneratedImage{Data: data, MimeType: mime}, nil
}

// GenerateVideo starts a Veo long-running prediction, polls it until done and downloads the video
func (m *GeminiMedia) GenerateVideo(ctx context.Context, req *VideoRequest) (*GeneratedVideo, error) {
	model := req.Model
	if model == "" {
		model = DefaultVeoModel
	}
	duration := req.DurationSeconds
	if duration <= 0 {
		duration = defaultVideoDuration
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}

	body := predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: map[string]any{
			"sampleCount":     1,
			"durationSeconds": duration,
			"aspectRatio":     aspect,
			"enhancePrompt":   true,
		},
	}

	var op operation
	if err := m.do(ctx, http.MethodPost, fmt.Sprintf("%s/models/%s:predictLongRunning", m.endpoint, model), body, &op); err != nil {
		return nil, fmt.Errorf("veo predict: %w", err)
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.pollInterval):
		}
		name := op.Name
		op = operation{}
		if err := m.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s", m.endpoint, name), nil, &op); err != nil {
			return nil, fmt.Errorf("polling %s: %w", name, err)
		}
		if op.Name == "" {
			op.Name = name
		}
	}

	if op.Error != nil {
		return nil, fmt.Errorf("veo operation failed: %s", op.Error.Message)
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return nil, errors.New("veo returned no videos")
	}

	uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	data, err := m.download(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("downloading video: %w", err)
	}
	return &GeneratedVideo{Data: data, URI: uri, MimeType: "video/mp4"}, nil
}

func (m *GeminiMedia) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", m.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrMediaNotEnabled, strings.TrimSpace(string(data)))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}

func (m *GeminiMedia) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
