package dotnet

import "github.com/skdltmxn/dotnet-go/internal/tables"

// Assembly flags
const (
	AssemblyPublicKey                  = 0x0001
	AssemblyRetargetable               = 0x0100
	AssemblyDisableJITCompileOptimizer = 0x4000
	AssemblyEnableJITCompileTracking   = 0x8000
)

// File flags
const (
	FileContainsMetaData   = 0x0000
	FileContainsNoMetaData = 0x0001
)

// Manifest resource visibility
const (
	ResourceVisibilityMask = 0x0007
	ResourcePublic         = 0x0001
	ResourcePrivate        = 0x0002
)

// OSInfo is an AssemblyOS or AssemblyRefOS row.
type OSInfo struct {
	PlatformID   uint32
	MajorVersion uint32
	MinorVersion uint32
}

// AssemblyInfo is the identity of the assembly this module belongs to.
type AssemblyInfo struct {
	attributeSet
	securitySet

	hashAlg    uint32
	version    Version
	flags      uint32
	publicKey  []byte
	name       string
	culture    string
	processors []uint32
	oses       []OSInfo
}

func (a *AssemblyInfo) Token() uint32        { return tables.Assembly.Token(1) }
func (a *AssemblyInfo) Name() string         { return a.name }
func (a *AssemblyInfo) Culture() string      { return a.culture }
func (a *AssemblyInfo) Version() Version     { return a.version }
func (a *AssemblyInfo) Flags() uint32        { return a.flags }
func (a *AssemblyInfo) HashAlgID() uint32    { return a.hashAlg }
func (a *AssemblyInfo) PublicKey() []byte    { return a.publicKey }
func (a *AssemblyInfo) Processors() []uint32 { return a.processors }
func (a *AssemblyInfo) OS() []OSInfo         { return a.oses }

// AssemblyRefInfo is a reference to another assembly.
type AssemblyRefInfo struct {
	attributeSet

	rid              uint32
	version          Version
	flags            uint32
	publicKeyOrToken []byte
	name             string
	culture          string
	hashValue        []byte
	processors       []uint32
	oses             []OSInfo
}

func (a *AssemblyRefInfo) Token() uint32            { return tables.AssemblyRef.Token(a.rid) }
func (a *AssemblyRefInfo) Name() string             { return a.name }
func (a *AssemblyRefInfo) Culture() string          { return a.culture }
func (a *AssemblyRefInfo) Version() Version         { return a.version }
func (a *AssemblyRefInfo) Flags() uint32            { return a.flags }
func (a *AssemblyRefInfo) PublicKeyOrToken() []byte { return a.publicKeyOrToken }
func (a *AssemblyRefInfo) HashValue() []byte        { return a.hashValue }
func (a *AssemblyRefInfo) Processors() []uint32     { return a.processors }
func (a *AssemblyRefInfo) OS() []OSInfo             { return a.oses }

// ModuleRefInfo is a reference to another module, typically a native
// library imported through platform invoke.
type ModuleRefInfo struct {
	attributeSet

	rid  uint32
	name string
}

func (m *ModuleRefInfo) Token() uint32 { return tables.ModuleRef.Token(m.rid) }
func (m *ModuleRefInfo) Name() string  { return m.name }

// FileReference is a file of a multi-file assembly.
type FileReference struct {
	attributeSet

	rid       uint32
	flags     uint32
	name      string
	hashValue []byte
}

func (f *FileReference) Token() uint32     { return tables.File.Token(f.rid) }
func (f *FileReference) Name() string      { return f.name }
func (f *FileReference) Flags() uint32     { return f.flags }
func (f *FileReference) HashValue() []byte { return f.hashValue }

// ContainsMetadata reports whether the file is a module rather than a
// resource file.
func (f *FileReference) ContainsMetadata() bool {
	return f.flags&FileContainsNoMetaData == 0
}

// ManifestResource is a resource of the assembly: a *LocalResource,
// *FileResource or *AssemblyResource.
type ManifestResource interface {
	CustomAttributeOwner
	Name() string
	Flags() uint32
	isManifestResource()
}

type resource struct {
	attributeSet

	rid   uint32
	name  string
	flags uint32
}

func (r *resource) Token() uint32       { return tables.ManifestResource.Token(r.rid) }
func (r *resource) Name() string        { return r.name }
func (r *resource) Flags() uint32       { return r.flags }
func (r *resource) IsPublic() bool      { return r.flags&ResourceVisibilityMask == ResourcePublic }
func (r *resource) isManifestResource() {}

// LocalResource is a resource embedded in this image.
type LocalResource struct {
	resource
	data []byte
}

// Data returns the resource bytes.
func (r *LocalResource) Data() []byte { return r.data }

// FileResource is a resource stored in another file of the assembly.
type FileResource struct {
	resource
	file   *FileReference
	offset uint32
}

// File returns the file holding the resource.
func (r *FileResource) File() *FileReference { return r.file }

// Offset returns the byte offset of the resource within the file.
func (r *FileResource) Offset() uint32 { return r.offset }

// AssemblyResource is a resource stored in another assembly.
type AssemblyResource struct {
	resource
	assembly *AssemblyRefInfo
}

// Assembly returns the assembly holding the resource.
func (r *AssemblyResource) Assembly() *AssemblyRefInfo { return r.assembly }
