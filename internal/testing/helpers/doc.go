// # JWT Helpers
//
// Mint tokens accepted by a service from NewTestJWTService:
//
//	jwtSvc := helpers.NewTestJWTService(t)
//	tokens := helpers.NewJWTHelper(t, jwtSvc)
//	rec := helpers.NewRequest(t, http.MethodGet, "/api/auth/me").
//	    WithAuth(tokens, alice).
//	    Do(router)
//
// # Assertion Helpers
//
//	helpers.AssertStatus(t, rec, http.StatusOK)
//	helpers.AssertProblemDetails(t, rec, http.StatusForbidden, model.ErrCodeAdminRequired)
//	helpers.AssertRowCount(t, tdb.DB, "transfers", 1)
package helpers
