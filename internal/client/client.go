package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"authload/internal/stats"
)

// Recorder is the write side of the metrics collector.
type Recorder interface {
	Record(s stats.Sample)
}

// Response is what a scenario sees of one request. Status is 0 on transport errors.
type Response struct {
	Status   int
	Body     []byte
	Duration time.Duration
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Metrics Recorder
}

func New(baseURL string, timeout time.Duration, rec Recorder) *Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: t,
		},
		Metrics: rec,
	}
}

// Request describes one call. Name tags the samples it produces.
type Request struct {
	Name   string
	Method string
	Path   string
	Body   any
	Token  string
}

// Do issues the request and records http_reqs, http_req_duration and
// http_req_failed. The returned Response is never nil.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return &Response{}, fmt.Errorf("encode %s body: %w", r.Name, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.BaseURL+r.Path, body)
	if err != nil {
		return &Response{}, fmt.Errorf("build %s request: %w", r.Name, err)
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	res := &Response{}
	if err == nil {
		res.Status = resp.StatusCode
		res.Body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
	}
	res.Duration = time.Since(start)

	c.record(r, res, err)
	if err != nil {
		return res, fmt.Errorf("%s %s: %w", r.Method, r.Path, err)
	}
	return res, nil
}

func (c *Client) record(r Request, res *Response, err error) {
	if c.Metrics == nil {
		return
	}
	now := time.Now()
	tags := stats.Tags{
		"name":   r.Name,
		"method": r.Method,
		"status": strconv.Itoa(res.Status),
	}
	failed := 0.0
	if err != nil || res.Status >= 400 || res.Status == 0 {
		failed = 1
	}

	c.Metrics.Record(stats.Sample{Metric: stats.HTTPReqs, Value: 1, Tags: tags, Time: now})
	c.Metrics.Record(stats.Sample{Metric: stats.HTTPReqDuration, Value: ms(res.Duration), Tags: tags, Time: now})
	c.Metrics.Record(stats.Sample{Metric: stats.HTTPReqFailed, Value: failed, Tags: tags, Time: now})
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
