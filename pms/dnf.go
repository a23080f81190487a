package pms

func init() {
	register("dnf", func() Manager { return newDnf() })
}

// dnf is yum with a different front end (Fedora, recent RHEL).
type dnf struct {
	*yum
}

func newDnf() *dnf {
	base := newYum()
	base.name = "dnf"
	base.pms = "/usr/bin/dnf"

	return &dnf{yum: base}
}
