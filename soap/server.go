package soap

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evtrip/core/events"
	"github.com/kilianp07/evtrip/core/trip"
	"github.com/kilianp07/evtrip/infra/logger"
	"github.com/kilianp07/evtrip/internal/eventbus"
)

const maxEnvelopeBytes = 1 << 20

// Config holds the SOAP service settings.
type Config struct {
	// PublicURL is the endpoint advertised in the WSDL. When empty it is
	// derived from the incoming request.
	PublicURL string `json:"public_url"`
	// SentinelOnError makes calculerTempsTrajet answer -1 instead of a
	// fault when the input is rejected.
	SentinelOnError bool `json:"sentinel_on_error"`
}

// Server handles SOAP envelopes and WSDL requests.
type Server struct {
	cfg      Config
	strict   *trip.Calculator
	legacy   *trip.Calculator
	bus      eventbus.Bus[events.TripEvent]
	log      logger.Logger
	requests *prometheus.CounterVec
}

// NewServer creates a Server registering its metrics on the default
// Prometheus registerer. bus may be nil.
func NewServer(cfg Config, bus eventbus.Bus[events.TripEvent]) *Server {
	return NewServerWithRegistry(cfg, bus, prometheus.DefaultRegisterer)
}

// NewServerWithRegistry creates a Server and registers its metrics on the
// provided registerer. If reg is nil the default registerer is used.
func NewServerWithRegistry(cfg Config, bus eventbus.Bus[events.TripEvent], reg prometheus.Registerer) *Server {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	log := logger.New("soap-server")

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soap_requests_total",
		Help: "Total SOAP requests by operation and outcome",
	}, []string{"operation", "outcome"})
	if err := reg.Register(requests); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				requests = exist
			} else {
				log.Errorf("existing collector for soap_requests_total has wrong type %T", are.ExistingCollector)
			}
		}
	}

	return &Server{
		cfg:      cfg,
		strict:   trip.NewCalculator(trip.PolicyStrict, logger.New("trip")),
		legacy:   trip.NewCalculator(trip.PolicySpeedRange, logger.New("trip")),
		bus:      bus,
		log:      log,
		requests: requests,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !wantsWSDL(r) {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.serveWSDL(w, r)
	case http.MethodPost:
		s.serveCall(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func wantsWSDL(r *http.Request) bool {
	for k := range r.URL.Query() {
		if strings.EqualFold(k, "wsdl") {
			return true
		}
	}
	return false
}

func (s *Server) serveWSDL(w http.ResponseWriter, r *http.Request) {
	addr := s.cfg.PublicURL
	if addr == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		addr = scheme + "://" + r.Host + r.URL.Path
	}
	doc, err := WSDL(addr)
	if err != nil {
		s.log.Errorf("render wsdl: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := w.Write(doc); err != nil {
		s.log.Errorf("write wsdl: %v", err)
	}
}

func (s *Server) serveCall(w http.ResponseWriter, r *http.Request) {
	op, params, err := decodeRequest(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes))
	if err != nil {
		s.writeFault(w, "unknown", asFault(err))
		return
	}
	if !knownOperation(op) {
		s.writeFault(w, "unknown", clientFault("unknown operation %s", op))
		return
	}
	req, err := params.request()
	if err != nil {
		s.writeFault(w, op, asFault(err))
		return
	}
	s.log.Debugf("soap call %s", op)

	switch op {
	case OpTripTime:
		b, err := s.strict.Breakdown(req)
		s.publish(op, trip.PolicyStrict, req, b, err)
		if err != nil {
			if s.cfg.SentinelOnError {
				s.writeResult(w, op, "invalid", formatFloat(Sentinel))
				return
			}
			s.writeFault(w, op, &Fault{Code: FaultClient, String: err.Error()})
			return
		}
		s.writeResult(w, op, "ok", formatFloat(b.TotalHours))
	case OpTripSummary:
		b, err := s.strict.Breakdown(req)
		s.publish(op, trip.PolicyStrict, req, b, err)
		if err != nil {
			s.writeResult(w, op, "invalid", trip.InvalidSummary)
			return
		}
		s.writeResult(w, op, "ok", trip.Summary(req, b))
	case OpLegacy:
		b, err := s.legacy.Breakdown(req)
		s.publish(op, trip.PolicySpeedRange, req, b, err)
		if err != nil {
			s.writeResult(w, op, "invalid", formatFloat(Sentinel))
			return
		}
		s.writeResult(w, op, "ok", formatFloat(b.TotalHours))
	}
}

func knownOperation(op string) bool {
	switch op {
	case OpTripTime, OpTripSummary, OpLegacy:
		return true
	}
	return false
}

func (s *Server) publish(op string, p trip.Policy, req trip.Request, b trip.Breakdown, err error) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewTripEvent("soap", op, p, req, b, err))
}

func (s *Server) writeResult(w http.ResponseWriter, op, outcome, value string) {
	body, err := encodeResponse(op, value)
	if err != nil {
		s.log.Errorf("encode %s response: %v", op, err)
		s.writeFault(w, op, &Fault{Code: FaultServer, String: "encode response"})
		return
	}
	s.requests.WithLabelValues(op, outcome).Inc()
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := w.Write(body); err != nil {
		s.log.Errorf("write %s response: %v", op, err)
	}
}

// writeFault answers with HTTP 500 as required by SOAP 1.1.
func (s *Server) writeFault(w http.ResponseWriter, op string, f *Fault) {
	s.requests.WithLabelValues(op, "fault").Inc()
	s.log.Warnf("soap fault on %s: %s", op, f.String)
	body, err := encodeFault(f)
	if err != nil {
		s.log.Errorf("encode fault: %v", err)
		http.Error(w, f.String, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if _, err := w.Write(body); err != nil {
		s.log.Errorf("write fault: %v", err)
	}
}

func asFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{Code: FaultServer, String: err.Error()}
}
