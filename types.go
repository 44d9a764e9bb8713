package avifmux

// FourCC is a four-character code used for box types, brands and item types.
type FourCC [4]byte

func (c FourCC) String() string { return string(c[:]) }

// Item IDs are fixed: the container holds at most one color and one alpha item.
const (
	ColorItemID uint16 = 1
	AlphaItemID uint16 = 2
)

// Brands written to the file-type box.
var (
	BrandAVIF = FourCC{'a', 'v', 'i', 'f'}
	BrandMIF1 = FourCC{'m', 'i', 'f', '1'}
	BrandMIAF = FourCC{'m', 'i', 'a', 'f'}
)

// Reference types linking the alpha and color items.
var (
	RefAuxiliary     = FourCC{'a', 'u', 'x', 'l'}
	RefPremultiplied = FourCC{'p', 'r', 'e', 'm'}
)

// AlphaURN is the auxiliary type declared for alpha planes.
const AlphaURN = "urn:mpeg:mpegB:cicp:systems:auxiliary:alpha"

var (
	typeFtyp = FourCC{'f', 't', 'y', 'p'}
	typeMeta = FourCC{'m', 'e', 't', 'a'}
	typeHdlr = FourCC{'h', 'd', 'l', 'r'}
	typeIinf = FourCC{'i', 'i', 'n', 'f'}
	typeInfe = FourCC{'i', 'n', 'f', 'e'}
	typePitm = FourCC{'p', 'i', 't', 'm'}
	typeIloc = FourCC{'i', 'l', 'o', 'c'}
	typeIprp = FourCC{'i', 'p', 'r', 'p'}
	typeIpco = FourCC{'i', 'p', 'c', 'o'}
	typeIpma = FourCC{'i', 'p', 'm', 'a'}
	typeIref = FourCC{'i', 'r', 'e', 'f'}
	typeIspe = FourCC{'i', 's', 'p', 'e'}
	typeAv1C = FourCC{'a', 'v', '1', 'C'}
	typePixi = FourCC{'p', 'i', 'x', 'i'}
	typeAuxC = FourCC{'a', 'u', 'x', 'C'}
	typeMdat = FourCC{'m', 'd', 'a', 't'}

	itemTypeAV01   = FourCC{'a', 'v', '0', '1'}
	handlerPicture = FourCC{'p', 'i', 'c', 't'}
)
