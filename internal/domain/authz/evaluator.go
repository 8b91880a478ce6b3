package authz

// Authorize checks every restriction present in claims against req.
// Rules run in a fixed order (action, printer, type, checksum) and the first
// mismatch is reported; printer, type and checksum only apply to print
// requests. Nil claims allow everything.
func Authorize(claims *Claims, req Request) Decision {
	if d := AuthorizeScope(claims, req); !d.Allow {
		return d
	}
	if req.Action != ActionPrint {
		return allow()
	}
	return VerifyCheckSum(claims, req.Data)
}

// AuthorizeScope runs the checks that need no payload: action, then printer
// and type for print requests. req.Data is ignored.
func AuthorizeScope(claims *Claims, req Request) Decision {
	if claims == nil {
		return allow()
	}

	if claims.Action != nil && *claims.Action != string(req.Action) {
		return deny(ReasonUnauthorizedAction)
	}

	if req.Action != ActionPrint {
		return allow()
	}

	if claims.Printer != nil && *claims.Printer != req.Printer {
		return deny(ReasonUnauthorizedPrinter)
	}

	if claims.Type != nil && *claims.Type != req.Type {
		return deny(ReasonUnauthorizedType)
	}

	return allow()
}

// VerifyCheckSum compares the checkSum claim with the digest of the decoded
// payload.
func VerifyCheckSum(claims *Claims, data []byte) Decision {
	if claims == nil || claims.CheckSum == nil {
		return allow()
	}
	if *claims.CheckSum != Digest(data) {
		return deny(ReasonChecksumMismatch)
	}
	return allow()
}
