// Package testing provides test doubles for the broker package.
package testing

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/routerlab/mrcli/internal/broker"
)

// FakeClient implements broker.Client with scripted per-device behavior.
// Tests populate Devices, Results, Errors, and Delays before use.
type FakeClient struct {
	mu sync.Mutex

	// Devices is the simulated agent inventory.
	Devices map[string]broker.DeviceInfo
	// Results maps device name to the raw command result.
	Results map[string]string
	// Errors maps device name to a scripted request failure.
	Errors map[string]error
	// Delays maps device name to an artificial response latency.
	Delays map[string]time.Duration
	// LookupErr, when set, fails every DevicesMatching call.
	LookupErr error
	// ForceOutstanding inflates the Running counter, for interrupt tests
	// that need "requests outstanding" without real latency.
	ForceOutstanding int

	// KillAllCalls counts bulk-cancel invocations.
	KillAllCalls int

	// Submitted records every submitted request in order.
	Submitted []*broker.Request

	counters broker.Counters
	inflight map[*fakeHandle]struct{}
	wg       sync.WaitGroup
}

var _ broker.Client = (*FakeClient)(nil)

// NewFakeClient creates an empty fake agent client.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Devices:  make(map[string]broker.DeviceInfo),
		Results:  make(map[string]string),
		Errors:   make(map[string]error),
		Delays:   make(map[string]time.Duration),
		inflight: make(map[*fakeHandle]struct{}),
	}
}

// AddDevice registers a device with a result for command requests.
func (f *FakeClient) AddDevice(name, deviceType, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Devices[name] = broker.DeviceInfo{DeviceType: deviceType}
	f.Results[name] = result
}

type fakeHandle struct {
	done   chan struct{}
	cancel chan struct{}
	err    error
}

func (h *fakeHandle) Wait() error {
	<-h.done
	return h.err
}

// Submit schedules asynchronous completion of the request using the
// scripted result, error, and delay for its target device.
func (f *FakeClient) Submit(req *broker.Request) (broker.Handle, error) {
	f.mu.Lock()
	target := req.Target()
	delay := f.Delays[target]
	scriptedErr := f.Errors[target]
	result, hasResult := f.Results[target]

	h := &fakeHandle{
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}
	f.inflight[h] = struct{}{}
	f.Submitted = append(f.Submitted, req)
	f.counters.RequestsTotal++
	f.counters.RequestsOK++
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()

		resp := &broker.Response{Request: req}

		timer := time.NewTimer(delay)
		defer timer.Stop()

		var deadline <-chan time.Time
		if req.Timeout > 0 {
			t := time.NewTimer(req.Timeout)
			defer t.Stop()
			deadline = t.C
		}

		select {
		case <-timer.C:
			if scriptedErr != nil {
				resp.Err = scriptedErr
			} else if hasResult {
				resp.Result = result
				resp.HasResult = true
			}
		case <-deadline:
			resp.Err = &broker.TimeoutError{Timeout: req.Timeout}
		case <-h.cancel:
			resp.Err = &broker.CancelledError{}
		}

		f.mu.Lock()
		delete(f.inflight, h)
		f.counters.ResponsesTotal++
		if resp.Err != nil {
			f.counters.ResponsesError++
		} else {
			f.counters.ResponsesOK++
			f.counters.BytesReceived += int64(len(resp.Result))
		}
		f.mu.Unlock()

		h.err = resp.Err
		if req.Callback != nil {
			req.Callback(resp)
		}
		close(h.done)
	}()

	return h, nil
}

// WaitAll blocks until every submitted request has completed.
func (f *FakeClient) WaitAll() {
	f.wg.Wait()
}

// KillAll cancels all in-flight requests.
func (f *FakeClient) KillAll() {
	f.mu.Lock()
	f.KillAllCalls++
	for h := range f.inflight {
		close(h.cancel)
	}
	f.inflight = make(map[*fakeHandle]struct{})
	f.mu.Unlock()
}

// Counters returns the current counter snapshot.
func (f *FakeClient) Counters() broker.Counters {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.counters
	c.Running = len(f.inflight) + f.ForceOutstanding
	return c
}

// DevicesMatching matches the pattern, anchored at the start of each
// device name, against the scripted inventory.
func (f *FakeClient) DevicesMatching(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	if err := ctx.Err(); err != nil {
		return nil, &broker.Error{Message: err.Error()}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &broker.Error{Message: "bad regexp: " + err.Error()}
	}

	var names []string
	for name := range f.Devices {
		if loc := re.FindStringIndex(name); loc != nil && loc[0] == 0 {
			names = append(names, name)
		}
	}
	return names, nil
}

// DevicesInfo returns metadata for devices matching the pattern.
func (f *FakeClient) DevicesInfo(ctx context.Context, pattern string) (map[string]broker.DeviceInfo, error) {
	names, err := f.DevicesMatching(ctx, pattern)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	info := make(map[string]broker.DeviceInfo, len(names))
	for _, name := range names {
		info[name] = f.Devices[name]
	}
	return info, nil
}
