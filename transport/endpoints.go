package transport

// Server API endpoints. Paths under /public/ exchange plain JSON;
// paths under /safe/ exchange wrapped (signed and encrypted) payloads.
const (
	// command API
	EndpointServerInfo   = "/api/v1/public/server/info/"
	EndpointProjectKeys  = "/api/v1/public/keys/project/"
	EndpointReposKeys    = "/api/v1/public/keys/repositories/"
	EndpointPackagerKeys = "/api/v1/public/keys/packager/"
	EndpointComputerID   = "/api/v1/safe/computers/id/"
	EndpointComputer     = "/api/v1/safe/computers/"
	EndpointEOT          = "/api/v1/safe/eot/"

	// sync API
	EndpointProperties        = "/api/v1/safe/computers/properties/"
	EndpointFaultDefinitions  = "/api/v1/safe/computers/faults/definitions/"
	EndpointRepositories      = "/api/v1/safe/computers/repositories/"
	EndpointMandatoryPackages = "/api/v1/safe/computers/packages/mandatory/"
	EndpointDevices           = "/api/v1/safe/computers/devices/"
	EndpointHardwareRequired  = "/api/v1/safe/computers/hardware/required/"
	EndpointUploadErrors      = "/api/v1/safe/computers/errors/"
	EndpointUploadHardware    = "/api/v1/safe/computers/hardware/"
	EndpointUploadAttributes  = "/api/v1/safe/computers/attributes/"
	EndpointUploadFaults      = "/api/v1/safe/computers/faults/"
	EndpointUploadSoftware    = "/api/v1/safe/computers/software/"
	EndpointUploadSync        = "/api/v1/safe/synchronizations/"

	// label and tags API
	EndpointLabel         = "/api/v1/safe/computers/label/"
	EndpointAssignedTags  = "/api/v1/safe/computers/tags/assigned/"
	EndpointAvailableTags = "/api/v1/safe/computers/tags/available/"
	EndpointUploadTags    = "/api/v1/safe/computers/tags/"

	// packager API
	EndpointUploadPackage    = "/api/v1/safe/packages/"
	EndpointUploadSet        = "/api/v1/safe/packages/set/"
	EndpointCreateRepository = "/api/v1/safe/packages/repos/"

	// mTLS manager API
	EndpointMTLSTokens       = "/manager/v1/public/mtls/computer-tokens"
	EndpointMTLSCertificates = "/manager/v1/public/mtls/computer-certificates"
)
