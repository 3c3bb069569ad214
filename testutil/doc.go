// Package testutil provides shared fixtures for semmodel tests.
//
// NewModel builds a core model over a fresh tag normalizer and type
// registry, closing the normalizer when the test ends:
//
//	mdl := testutil.NewModel(t)
//	_, err := mdl.AddForm("_visi:int", "int", nil, model.Info{})
//
// MockNATSClient is an in-memory stand-in for natsclient.Client's
// Publish and Subscribe. It records every message per subject, runs
// subscription handlers synchronously and can be told to fail:
//
//	nc := testutil.NewMockNATSClient()
//	pub := notify.NewNATSPublisher(nc, "", nil)
//	...
//	msgs := nc.Messages("semmodel.model.form.add")
//
// Packages that testutil itself imports (tags, datatype, model) cannot use
// it from their own in-package tests.
package testutil
