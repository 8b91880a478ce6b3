package printing

// NeedsEMF reports whether jobs must be converted to EMF before printing.
// mode is "emf", "none" or "auto"; auto follows the host: the Windows
// spooler cannot take PDF directly.
func NeedsEMF(mode, goos string) bool {
	switch mode {
	case "emf":
		return true
	case "none":
		return false
	default:
		return goos == "windows"
	}
}
