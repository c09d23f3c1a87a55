package auth

import (
	"testing"

	"clinicstaff/testutil"
)

func TestLayering(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Any(testutil.InfraImportForbidden, testutil.TransportImportForbidden),
		"auth works on the service and domain only")
}
