package reports

import (
	"testing"

	"clinicstaff/testutil"
)

func TestLayering(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Any(testutil.InfraImportForbidden, testutil.TransportImportForbidden),
		"reports works on the service and domain only")
}
