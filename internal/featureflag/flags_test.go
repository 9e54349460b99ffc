package featureflag_test

//go:generate mockgen -source=evaluator.go -destination=mocks/mocks.go -package=mocks Evaluator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"engage/internal/featureflag"
	"engage/internal/featureflag/mocks"
	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/sentinel"
	"engage/pkg/requestcontext"
)

// =============================================================================
// Request Flags Test Suite
// =============================================================================
// The evaluator is an external service, so it is mocked: the tests pin how
// many calls reach it and what happens when it is down.

type RequestFlagsSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	evaluator *mocks.MockEvaluator
	metrics   *featureflag.Metrics
	ctx       context.Context
	ec        featureflag.EvaluationContext
}

func TestRequestFlagsSuite(t *testing.T) {
	suite.Run(t, new(RequestFlagsSuite))
}

func (s *RequestFlagsSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.evaluator = mocks.NewMockEvaluator(s.ctrl)
	s.metrics = featureflag.NewMetrics(prometheus.NewRegistry())
	s.ctx = context.Background()
	s.ec = featureflag.EvaluationContext{UserID: "u-1", OrganizationID: "org-1", Environment: "test"}
}

func (s *RequestFlagsSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RequestFlagsSuite) flags() *featureflag.RequestFlags {
	return featureflag.NewRequestFlags(s.evaluator, s.ec, featureflag.WithFlagsMetrics(s.metrics))
}

func (s *RequestFlagsSuite) TestMemoization() {
	s.Run("each key reaches the evaluator once", func() {
		s.evaluator.EXPECT().
			EvaluateFlag(gomock.Any(), "marketplace", s.ec).
			Return(featureflag.Result{Value: true}, nil).
			Times(1)

		f := s.flags()
		for range 5 {
			s.True(f.IsEnabled(s.ctx, "marketplace"))
		}
		v, err := f.Value(s.ctx, "marketplace")
		s.Require().NoError(err)
		s.Equal(true, v)
	})

	s.Run("failures are memoized too", func() {
		s.evaluator.EXPECT().
			EvaluateFlag(gomock.Any(), "marketplace", gomock.Any()).
			Return(featureflag.Result{}, fmt.Errorf("dial: %w", sentinel.ErrUnavailable)).
			Times(1)

		f := s.flags()
		s.False(f.IsEnabled(s.ctx, "marketplace"))
		s.False(f.IsEnabled(s.ctx, "marketplace"))
		s.Equal(float64(1), promtest.ToFloat64(s.metrics.EvaluatorFailures))
	})

	s.Run("each identity is evaluated once", func() {
		s.evaluator.EXPECT().
			EvaluateFlag(gomock.Any(), "beta", s.ec).
			Return(featureflag.Result{Value: false}, nil).
			Times(1)
		s.evaluator.EXPECT().
			EvaluateFlag(gomock.Any(), "beta", featureflag.EvaluationContext{UserID: "u-2", OrganizationID: "org-1", Environment: "test"}).
			Return(featureflag.Result{Value: true}, nil).
			Times(1)

		f := s.flags()
		s.False(f.IsEnabled(s.ctx, "beta"))
		f.Identify("u-1", "org-1")
		s.False(f.IsEnabled(s.ctx, "beta"))
		f.Identify("u-2", "org-1")
		s.True(f.IsEnabled(s.ctx, "beta"))
		s.True(f.IsEnabled(s.ctx, "beta"))
		f.Identify("u-1", "org-1")
		s.False(f.IsEnabled(s.ctx, "beta"))
	})

	s.Run("reads before and after authentication share the memo of their identity", func() {
		anonymous := featureflag.EvaluationContext{Environment: "test"}
		s.evaluator.EXPECT().
			EvaluateFlag(gomock.Any(), "beta", anonymous).
			Return(featureflag.Result{Value: false}, nil).
			Times(1)
		s.evaluator.EXPECT().
			EvaluateFlags(gomock.Any(), []string{"beta"}, s.ec).
			Return(map[string]featureflag.Result{"beta": {Value: true}}, nil).
			Times(1)

		f := featureflag.NewRequestFlags(s.evaluator, anonymous)
		for range 3 {
			s.False(f.IsEnabled(s.ctx, "beta"))
		}
		f.Identify("u-1", "org-1")
		f.Prefetch(s.ctx, "beta")
		f.Prefetch(s.ctx, "beta")
		for range 3 {
			s.True(f.IsEnabled(s.ctx, "beta"))
		}
	})
}

func (s *RequestFlagsSuite) TestTypedAccessors() {
	values := map[string]any{
		"banner":      "spring",
		"max-points":  float64(250),
		"rollout":     "0.5",
		"wrong-type":  true,
		"string-bool": "true",
	}
	s.evaluator.EXPECT().
		EvaluateFlag(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string, _ featureflag.EvaluationContext) (featureflag.Result, error) {
			return featureflag.Result{Value: values[key]}, nil
		}).
		AnyTimes()

	f := s.flags()
	s.Equal("spring", f.StringValue(s.ctx, "banner", "default"))
	s.Equal("default", f.StringValue(s.ctx, "wrong-type", "default"))
	s.Equal("default", f.StringValue(s.ctx, "unset", "default"))
	s.Equal(float64(250), f.NumericValue(s.ctx, "max-points", 100))
	s.Equal(0.5, f.NumericValue(s.ctx, "rollout", 0))
	s.Equal(float64(100), f.NumericValue(s.ctx, "banner", 100))
	s.True(f.IsEnabled(s.ctx, "string-bool"))
	s.False(f.IsEnabled(s.ctx, "unset"))
}

func (s *RequestFlagsSuite) TestPrefetch() {
	s.evaluator.EXPECT().
		EvaluateFlags(gomock.Any(), []string{"a", "b"}, s.ec).
		Return(map[string]featureflag.Result{"a": {Value: true}}, nil)

	f := s.flags()
	f.Prefetch(s.ctx, "a", "b")
	f.Prefetch(s.ctx, "a", "b")

	s.True(f.IsEnabled(s.ctx, "a"))
	s.False(f.IsEnabled(s.ctx, "b"))
	s.Equal(float64(2), promtest.ToFloat64(s.metrics.Evaluations))
}

func (s *RequestFlagsSuite) TestRequire() {
	s.Run("enabled flag passes", func() {
		s.evaluator.EXPECT().EvaluateFlag(gomock.Any(), "on", gomock.Any()).Return(featureflag.Result{Value: true}, nil)
		s.NoError(s.flags().Require(s.ctx, "on"))
	})

	s.Run("disabled flag reads as not found", func() {
		s.evaluator.EXPECT().EvaluateFlag(gomock.Any(), "off", gomock.Any()).Return(featureflag.Result{Value: false}, nil)
		err := s.flags().Require(s.ctx, "off")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unset flag reads as not found", func() {
		s.evaluator.EXPECT().EvaluateFlag(gomock.Any(), "unset", gomock.Any()).Return(featureflag.Result{}, nil)
		err := s.flags().Require(s.ctx, "unset")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("evaluator outage fails open", func() {
		s.evaluator.EXPECT().
			EvaluateFlag(gomock.Any(), "gated", gomock.Any()).
			Return(featureflag.Result{}, errors.New("connection refused"))

		before := promtest.ToFloat64(s.metrics.FailOpenGates)
		s.NoError(s.flags().Require(s.ctx, "gated"))
		s.Equal(before+1, promtest.ToFloat64(s.metrics.FailOpenGates))
	})

	s.Run("missing evaluator fails open", func() {
		f := featureflag.NewRequestFlags(nil, s.ec)
		s.NoError(f.Require(s.ctx, "gated"))
		_, err := f.Value(s.ctx, "gated")
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})
}

// =============================================================================
// Initializer
// =============================================================================

func TestInitialize(t *testing.T) {
	evaluator := featureflag.NewStaticEvaluator(map[string]featureflag.StaticFlag{
		"marketplace": {Value: true, Organizations: map[string]any{"org-legacy": false}},
	})
	initializer := featureflag.NewInitializer(evaluator, "production")

	var got *featureflag.RequestFlags
	handler := initializer.Initialize(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = featureflag.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/marketplace/items", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.RemoteAddr = "203.0.113.7:51000"
	ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{UserID: "u-1", OrganizationID: "org-legacy"})
	ctx = requestcontext.WithRoute(ctx, http.MethodGet, "/api/v1/marketplace/items")
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	require.NotNil(t, got)
	ec := got.Context()
	assert.Equal(t, "u-1", ec.UserID)
	assert.Equal(t, "org-legacy", ec.OrganizationID)
	assert.Equal(t, "production", ec.Environment)
	assert.Equal(t, "203.0.113.7", ec.Request.ClientIP)
	assert.Equal(t, http.MethodGet, ec.Request.Method)
	assert.Equal(t, "/api/v1/marketplace/items", ec.Request.Route)
	assert.True(t, ec.Request.Mobile)
	assert.Equal(t, "Safari", ec.Request.Browser)

	assert.False(t, got.IsEnabled(context.Background(), "marketplace"))
	got.Identify("u-1", "org-2")
	assert.True(t, got.IsEnabled(context.Background(), "marketplace"))
}

func TestFromContext_WithoutInitialize(t *testing.T) {
	f := featureflag.FromContext(context.Background())
	assert.False(t, f.IsEnabled(context.Background(), "anything"))
	assert.NoError(t, f.Require(context.Background(), "anything"))
}

func TestParseStaticEvaluator(t *testing.T) {
	e, err := featureflag.ParseStaticEvaluator([]byte(`
flags:
  marketplace:
    value: true
    organizations:
      org-legacy: false
  max-points:
    value: 500
`))
	require.NoError(t, err)

	res, err := e.EvaluateFlags(context.Background(), []string{"marketplace", "max-points", "missing"},
		featureflag.EvaluationContext{OrganizationID: "org-legacy"})
	require.NoError(t, err)
	assert.Equal(t, false, res["marketplace"].Value)
	assert.Equal(t, 500, res["max-points"].Value)
	assert.NotContains(t, res, "missing")

	_, err = featureflag.ParseStaticEvaluator([]byte("flags:\n  broken: {}\n"))
	assert.Error(t, err)
}
