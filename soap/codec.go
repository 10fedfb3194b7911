package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/evtrip/core/trip"
)

// encodeRequest renders the envelope for a call of op.
func encodeRequest(op string, req trip.Request) ([]byte, error) {
	env := requestEnvelope{
		SoapNS: EnvelopeNS,
		TnsNS:  TargetNS,
		Body: requestBody{Call: requestCall{
			XMLName:  xml.Name{Local: "tns:" + op},
			Distance: formatFloat(req.DistanceKM),
			Speed:    formatFloat(req.SpeedKMH),
			Range:    formatFloat(req.RangeKM),
			Recharge: formatFloat(req.RechargeMinutes),
		}},
	}
	return marshal(env)
}

// decodeRequest reads an envelope and returns the operation named by the
// first element of the body together with its parameters.
func decodeRequest(r io.Reader) (string, tripParams, error) {
	var params tripParams
	d := xml.NewDecoder(r)
	inBody := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return "", params, clientFault("empty soap body")
		}
		if err != nil {
			return "", params, clientFault("malformed envelope: %v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case se.Name.Local == "Envelope" && !inBody:
		case se.Name.Local == "Header" && !inBody:
			if err := d.Skip(); err != nil {
				return "", params, clientFault("malformed header: %v", err)
			}
		case se.Name.Local == "Body" && !inBody:
			inBody = true
		case inBody:
			if err := d.DecodeElement(&params, &se); err != nil {
				return "", params, clientFault("invalid %s parameters: %v", se.Name.Local, err)
			}
			return se.Name.Local, params, nil
		default:
			return "", params, clientFault("unexpected element %s", se.Name.Local)
		}
	}
}

// encodeResponse renders a successful response for op.
func encodeResponse(op, value string) ([]byte, error) {
	return marshal(responseEnvelope{
		SoapNS: EnvelopeNS,
		TnsNS:  TargetNS,
		Body: responseBody{Response: &opResponse{
			XMLName: xml.Name{Local: "tns:" + op + "Response"},
			Result: resultElem{
				XMLName: xml.Name{Local: "tns:" + op + "Result"},
				Value:   value,
			},
		}},
	})
}

// encodeFault renders a fault envelope.
func encodeFault(f *Fault) ([]byte, error) {
	return marshal(responseEnvelope{
		SoapNS: EnvelopeNS,
		TnsNS:  TargetNS,
		Body:   responseBody{Fault: &faultElem{Code: f.Code, String: f.String}},
	})
}

// decodeResponse extracts the <op>Result text from a response envelope or
// returns the fault it carries.
func decodeResponse(r io.Reader, op string) (string, error) {
	d := xml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no %sResult in response", op)
		}
		if err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "Fault":
			var f struct {
				Code   string `xml:"faultcode"`
				String string `xml:"faultstring"`
			}
			if err := d.DecodeElement(&f, &se); err != nil {
				return "", fmt.Errorf("decode fault: %w", err)
			}
			return "", &Fault{Code: strings.TrimSpace(f.Code), String: strings.TrimSpace(f.String)}
		case op + "Result":
			var v string
			if err := d.DecodeElement(&v, &se); err != nil {
				return "", fmt.Errorf("decode result: %w", err)
			}
			return v, nil
		}
	}
}

func parseFloatResult(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse result %q: %w", s, err)
	}
	return v, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
