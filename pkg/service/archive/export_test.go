package archive

var (
	ObjectName  = objectName
	WriteObject = writeObject
)
