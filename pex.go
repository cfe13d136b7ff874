package remotefs

// UnixPexClass holds the read/write/execute bits for one of the three
// POSIX permission classes.
type UnixPexClass struct {
	Read    bool
	Write   bool
	Execute bool
}

// NewUnixPexClass builds a class from the lowest three bits of octet.
// Higher bits are ignored.
func NewUnixPexClass(octet uint8) UnixPexClass {
	return UnixPexClass{
		Read:    octet&0o4 != 0,
		Write:   octet&0o2 != 0,
		Execute: octet&0o1 != 0,
	}
}

// Octet returns the class encoded as a value in 0..7.
func (c UnixPexClass) Octet() uint8 {
	var v uint8
	if c.Read {
		v |= 0o4
	}
	if c.Write {
		v |= 0o2
	}
	if c.Execute {
		v |= 0o1
	}
	return v
}

// UnixPex is a POSIX permission triple (user, group, others).
type UnixPex struct {
	User   UnixPexClass
	Group  UnixPexClass
	Others UnixPexClass
}

// NewUnixPex assembles a permission triple from its three classes.
func NewUnixPex(user, group, others UnixPexClass) UnixPex {
	return UnixPex{User: user, Group: group, Others: others}
}

// UnixPexFromMode decodes the lowest nine bits of a numeric mode.
// Special bits (setuid, setgid, sticky) are discarded.
func UnixPexFromMode(mode uint32) UnixPex {
	return UnixPex{
		User:   NewUnixPexClass(uint8(mode >> 6 & 0o7)),
		Group:  NewUnixPexClass(uint8(mode >> 3 & 0o7)),
		Others: NewUnixPexClass(uint8(mode & 0o7)),
	}
}

// Mode encodes the triple back into a numeric mode in 0..0o777.
func (p UnixPex) Mode() uint32 {
	return uint32(p.User.Octet())<<6 | uint32(p.Group.Octet())<<3 | uint32(p.Others.Octet())
}

// CanRead reports whether any class has the read bit.
func (p UnixPex) CanRead() bool {
	return p.User.Read || p.Group.Read || p.Others.Read
}

// CanWrite reports whether any class has the write bit.
func (p UnixPex) CanWrite() bool {
	return p.User.Write || p.Group.Write || p.Others.Write
}

// CanExecute reports whether any class has the execute bit.
func (p UnixPex) CanExecute() bool {
	return p.User.Execute || p.Group.Execute || p.Others.Execute
}
