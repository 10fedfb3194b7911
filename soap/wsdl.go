package soap

import (
	"bytes"
	"encoding/xml"
	"text/template"
)

type wsdlOperation struct {
	Name       string
	ResultType string
	Doc        string
}

var wsdlOperations = []wsdlOperation{
	{OpTripTime, "float", "Total trip time in hours including recharge stops."},
	{OpTripSummary, "string", "Human readable trip summary."},
	{OpLegacy, "float", "Legacy trip time; only speed and range are validated."},
}

var wsdlParams = []string{ParamDistance, ParamSpeed, ParamRange, ParamRecharge}

var wsdlTemplate = template.Must(template.New("wsdl").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<wsdl:definitions xmlns:wsdl="http://schemas.xmlsoap.org/wsdl/" xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/" xmlns:xs="http://www.w3.org/2001/XMLSchema" xmlns:tns="{{.Namespace}}" targetNamespace="{{.Namespace}}" name="{{.Service}}">
  <wsdl:types>
    <xs:schema targetNamespace="{{.Namespace}}" elementFormDefault="qualified">
{{- range .Operations}}
      <xs:element name="{{.Name}}">
        <xs:complexType>
          <xs:sequence>
{{- range $.Params}}
            <xs:element name="{{.}}" type="xs:float" minOccurs="0" nillable="true"/>
{{- end}}
          </xs:sequence>
        </xs:complexType>
      </xs:element>
      <xs:element name="{{.Name}}Response">
        <xs:complexType>
          <xs:sequence>
            <xs:element name="{{.Name}}Result" type="xs:{{.ResultType}}" minOccurs="0" nillable="true"/>
          </xs:sequence>
        </xs:complexType>
      </xs:element>
{{- end}}
    </xs:schema>
  </wsdl:types>
{{- range .Operations}}
  <wsdl:message name="{{.Name}}">
    <wsdl:part name="{{.Name}}" element="tns:{{.Name}}"/>
  </wsdl:message>
  <wsdl:message name="{{.Name}}Response">
    <wsdl:part name="{{.Name}}Response" element="tns:{{.Name}}Response"/>
  </wsdl:message>
{{- end}}
  <wsdl:portType name="{{.Service}}">
{{- range .Operations}}
    <wsdl:operation name="{{.Name}}">
      <wsdl:documentation>{{.Doc}}</wsdl:documentation>
      <wsdl:input name="{{.Name}}" message="tns:{{.Name}}"/>
      <wsdl:output name="{{.Name}}Response" message="tns:{{.Name}}Response"/>
    </wsdl:operation>
{{- end}}
  </wsdl:portType>
  <wsdl:binding name="{{.Service}}" type="tns:{{.Service}}">
    <soap:binding style="document" transport="http://schemas.xmlsoap.org/soap/http"/>
{{- range .Operations}}
    <wsdl:operation name="{{.Name}}">
      <soap:operation soapAction="{{.Name}}" style="document"/>
      <wsdl:input name="{{.Name}}"><soap:body use="literal"/></wsdl:input>
      <wsdl:output name="{{.Name}}Response"><soap:body use="literal"/></wsdl:output>
    </wsdl:operation>
{{- end}}
  </wsdl:binding>
  <wsdl:service name="{{.Service}}">
    <wsdl:port name="{{.Service}}" binding="tns:{{.Service}}">
      <soap:address location="{{.Address}}"/>
    </wsdl:port>
  </wsdl:service>
</wsdl:definitions>
`))

// WSDL renders the service description with the given endpoint address.
func WSDL(address string) ([]byte, error) {
	var addr bytes.Buffer
	if err := xml.EscapeText(&addr, []byte(address)); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err := wsdlTemplate.Execute(&buf, struct {
		Namespace  string
		Service    string
		Address    string
		Operations []wsdlOperation
		Params     []string
	}{TargetNS, ServiceName, addr.String(), wsdlOperations, wsdlParams})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
