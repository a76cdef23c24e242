package core

import (
	"fmt"
	"slices"

	"github.com/giantswarm/hstreamenv/internal/process"
)

// Capability interfaces a test case may implement to receive session
// artifacts. Each is optional and independent.
type (
	// EndpointListReceiver receives the comma separated broker endpoints.
	EndpointListReceiver interface{ SetEndpointList(list string) }

	// ClientReceiver receives the connected client.
	ClientReceiver interface{ SetClient(c Client) }

	// BrokerHandlesReceiver receives the broker handles in index order.
	BrokerHandlesReceiver interface {
		SetBrokerHandles(handles []process.Handle)
	}

	// BrokerEndpointsReceiver receives the broker endpoints in index order.
	BrokerEndpointsReceiver interface {
		SetBrokerEndpoints(endpoints []string)
	}

	// LogPrefixReceiver receives the correlation id, for prefixing log lines
	// and locating artifacts.
	LogPrefixReceiver interface{ SetLogPrefix(prefix string) }

	// InvocationReceiver receives the invocation the session was built for.
	InvocationReceiver interface{ SetInvocation(inv Invocation) }
)

// Artifact names used in BindReport and BindingError.
const (
	ArtifactEndpointList    = "endpoint-list"
	ArtifactClient          = "client"
	ArtifactBrokerHandles   = "broker-handles"
	ArtifactBrokerEndpoints = "broker-endpoints"
	ArtifactLogPrefix       = "log-prefix"
	ArtifactInvocation      = "invocation"
)

type binding struct {
	artifact string
	// apply hands the artifact to tc and reports whether tc had the
	// capability.
	apply func(tc any, s *Session) bool
}

var bindings = []binding{
	{ArtifactEndpointList, func(tc any, s *Session) bool {
		r, ok := tc.(EndpointListReceiver)
		if ok {
			r.SetEndpointList(s.EndpointList)
		}
		return ok
	}},
	{ArtifactClient, func(tc any, s *Session) bool {
		r, ok := tc.(ClientReceiver)
		if ok {
			r.SetClient(s.Client)
		}
		return ok
	}},
	{ArtifactBrokerHandles, func(tc any, s *Session) bool {
		r, ok := tc.(BrokerHandlesReceiver)
		if ok {
			r.SetBrokerHandles(slices.Clone(s.Brokers))
		}
		return ok
	}},
	{ArtifactBrokerEndpoints, func(tc any, s *Session) bool {
		r, ok := tc.(BrokerEndpointsReceiver)
		if ok {
			r.SetBrokerEndpoints(slices.Clone(s.Endpoints))
		}
		return ok
	}},
	{ArtifactLogPrefix, func(tc any, s *Session) bool {
		r, ok := tc.(LogPrefixReceiver)
		if ok {
			r.SetLogPrefix(s.ID)
		}
		return ok
	}},
	{ArtifactInvocation, func(tc any, s *Session) bool {
		r, ok := tc.(InvocationReceiver)
		if ok {
			r.SetInvocation(s.Invocation)
		}
		return ok
	}},
}

// BindReport lists what Bind did with each artifact.
type BindReport struct {
	Bound   []string
	Skipped []string // test case lacks the capability
	Errors  []*BindingError
}

// Err joins all binding errors, or returns nil.
func (r BindReport) Err() error { return joinErrors(r.Errors) }

// Bind offers every session artifact to testCase. Artifacts whose capability
// testCase lacks are skipped silently. A setter that panics is recorded as a
// *BindingError and the remaining artifacts are still offered. Bind itself
// never panics.
func Bind(testCase any, s *Session) BindReport {
	var report BindReport
	log := s.Logger()
	for _, b := range bindings {
		bound, err := applyBinding(b, testCase, s)
		switch {
		case err != nil:
			berr := &BindingError{Artifact: b.artifact, Err: err}
			log.Warn("binding failed", "artifact", b.artifact, "error", err)
			report.Errors = append(report.Errors, berr)
		case bound:
			report.Bound = append(report.Bound, b.artifact)
		default:
			report.Skipped = append(report.Skipped, b.artifact)
		}
	}
	log.Debug("test case bound", "bound", report.Bound, "skipped", report.Skipped)
	return report
}

func applyBinding(b binding, tc any, s *Session) (bound bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setter panicked: %v", r)
		}
	}()
	return b.apply(tc, s), nil
}
