// Package dealscout is the Go client for the dealscout search API.
//
// A Client runs product searches against a deployed dealscout server and
// decodes the results into the same types the server uses:
//
//	client, err := dealscout.New(dealscout.WithBaseURL("http://localhost:8080"))
//	if err != nil { ... }
//
//	resp, err := client.Search(ctx, "adidas samba man 42",
//		dealscout.Location{Lat: 33.8886, Lng: 35.4955})
//
// Errors returned by the server map back to sentinel errors; check them
// with errors.Is.
package dealscout
