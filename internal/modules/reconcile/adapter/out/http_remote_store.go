package out

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	hclog "github.com/hashicorp/go-hclog"

	countdown "timeblocks/internal/modules/countdown/domain"
	"timeblocks/internal/modules/reconcile/domain"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
)

const maxEventSize = 1 << 20

var errStreamClosed = errors.New("event stream closed by server")

// HTTPRemoteStore talks to the document server: PATCH merges fields and
// the events endpoint streams the full document as server-sent events.
type HTTPRemoteStore struct {
	baseURL string
	client  *http.Client
	logger  hclog.Logger
}

func NewHTTPRemoteStore(baseURL string, client *http.Client, logger hclog.Logger) reconcileout.RemoteStore {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HTTPRemoteStore{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}
}

func (s *HTTPRemoteStore) Write(ctx context.Context, path string, patch countdown.Patch) error {
	target, err := s.documentURL(path)
	if err != nil {
		return err
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode document patch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("write document: %s", statusError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *HTTPRemoteStore) Subscribe(ctx context.Context, path string, onSnapshot func(domain.RemoteSnapshot), onError func(error)) (func(), error) {
	target, err := s.documentURL(path)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, target+"/events", nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build subscribe request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open event stream: %s", statusError(resp))
	}

	go func() {
		defer resp.Body.Close()
		err := readEvents(resp.Body, func(data []byte) error {
			snapshot, err := decodeSnapshot(data)
			if err != nil {
				return err
			}
			onSnapshot(snapshot)
			return nil
		})
		if streamCtx.Err() != nil {
			return
		}
		if err == nil {
			err = errStreamClosed
		}
		s.logger.Debug("event stream ended", "path", path, "error", err)
		onError(err)
	}()
	return cancel, nil
}

func (s *HTTPRemoteStore) documentURL(path string) (string, error) {
	namespace, user, err := splitPath(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/v1/docs/%s/%s", s.baseURL, url.PathEscape(namespace), url.PathEscape(user)), nil
}

// readEvents dispatches the data of each server-sent event. Comments and
// fields other than data are ignored.
func readEvents(r io.Reader, dispatch func(data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	var data []byte
	pending := false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if pending {
				if err := dispatch(data); err != nil {
					return err
				}
			}
			data, pending = data[:0], false
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			value := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if pending {
				data = append(data, '\n')
			}
			data = append(data, value...)
			pending = true
		}
	}
	return scanner.Err()
}

func statusError(resp *http.Response) string {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(payload, &body) == nil && body.Error != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
