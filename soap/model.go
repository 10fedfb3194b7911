package soap

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/kilianp07/evtrip/core/trip"
)

const (
	// EnvelopeNS is the SOAP 1.1 envelope namespace.
	EnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	// TargetNS is the namespace of the service operations.
	TargetNS = "vehicule.electrique.soap"
	// ServiceName is the service name advertised in the WSDL.
	ServiceName = "VehiculeElectriqueService"
)

// Operation names.
const (
	OpTripTime    = "calculerTempsTrajet"
	OpTripSummary = "calculerTempsTrajetDetaillee"
	OpLegacy      = "calculate"
)

// Parameter element names shared by every operation.
const (
	ParamDistance = "distance"
	ParamSpeed    = "vitesse"
	ParamRange    = "autonomie"
	ParamRecharge = "temps_chargement"
)

// Fault codes.
const (
	FaultClient = "soap11env:Client"
	FaultServer = "soap11env:Server"
)

// Sentinel is the result legacy clients receive for rejected input.
const Sentinel = -1.0

// Fault is a SOAP fault returned by the service.
type Fault struct {
	Code   string
	String string
}

func (f *Fault) Error() string { return fmt.Sprintf("soap fault %s: %s", f.Code, f.String) }

// Is reports client faults as trip.ErrInvalidInput.
func (f *Fault) Is(target error) bool {
	return target == trip.ErrInvalidInput && f.Code == FaultClient
}

func clientFault(format string, args ...any) *Fault {
	return &Fault{Code: FaultClient, String: fmt.Sprintf(format, args...)}
}

// tripParams holds the decoded operation parameters. Nil fields were absent
// from the request.
type tripParams struct {
	Distance *float64 `xml:"distance"`
	Speed    *float64 `xml:"vitesse"`
	Range    *float64 `xml:"autonomie"`
	Recharge *float64 `xml:"temps_chargement"`
}

func (p tripParams) request() (trip.Request, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{ParamDistance, p.Distance},
		{ParamSpeed, p.Speed},
		{ParamRange, p.Range},
		{ParamRecharge, p.Recharge},
	}
	for _, f := range fields {
		if f.v == nil {
			return trip.Request{}, clientFault("missing parameter %s", f.name)
		}
	}
	return trip.Request{
		DistanceKM:      *p.Distance,
		SpeedKMH:        *p.Speed,
		RangeKM:         *p.Range,
		RechargeMinutes: *p.Recharge,
	}, nil
}

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soap:Envelope"`
	SoapNS  string      `xml:"xmlns:soap,attr"`
	TnsNS   string      `xml:"xmlns:tns,attr"`
	Body    requestBody `xml:"soap:Body"`
}

type requestBody struct {
	Call requestCall
}

type requestCall struct {
	XMLName  xml.Name
	Distance string `xml:"tns:distance"`
	Speed    string `xml:"tns:vitesse"`
	Range    string `xml:"tns:autonomie"`
	Recharge string `xml:"tns:temps_chargement"`
}

type responseEnvelope struct {
	XMLName xml.Name     `xml:"soap11env:Envelope"`
	SoapNS  string       `xml:"xmlns:soap11env,attr"`
	TnsNS   string       `xml:"xmlns:tns,attr"`
	Body    responseBody `xml:"soap11env:Body"`
}

type responseBody struct {
	Response *opResponse
	Fault    *faultElem
}

type opResponse struct {
	XMLName xml.Name
	Result  resultElem
}

type resultElem struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type faultElem struct {
	XMLName xml.Name `xml:"soap11env:Fault"`
	Code    string   `xml:"faultcode"`
	String  string   `xml:"faultstring"`
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
