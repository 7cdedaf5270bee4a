// Package conversion reports leads and sales from a server handler.
//
// The browser side of attribution leaves the click id in a first-party
// cookie. Tracker reads it from the incoming request and forwards the
// conversion with the secret key:
//
//	tracker := conversion.New(trackapi.New(host, trackapi.WithSecretKey(key)), key)
//
//	func signup(w http.ResponseWriter, r *http.Request) {
//		_, err := tracker.Lead(r.Context(), r, conversion.Properties{
//			"eventName":  "Sign Up",
//			"customerId": user.ID,
//		})
//		if errors.Is(err, conversion.ErrMissingClickID) {
//			// organic visitor, nothing to attribute
//		}
//	}
//
// Requests without the cookie fail with ErrMissingClickID before any network
// call. Property values must be strings, numbers, booleans or null. Other
// values fail the call with ErrInvalidProperty, except in production where
// they are dropped and logged.
package conversion
