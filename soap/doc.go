// Package soap exposes the trip time calculator as a SOAP 1.1 service and
// provides the matching client.
//
// The service answers three operations in the vehicule.electrique.soap
// namespace:
//   - calculerTempsTrajet: total trip time in hours
//   - calculerTempsTrajetDetaillee: human readable summary
//   - calculate: legacy variant that only validates speed and range
//
// Each takes the distance, vitesse, autonomie and temps_chargement
// parameters. A GET on the endpoint with the wsdl query parameter returns
// the service description.
package soap
