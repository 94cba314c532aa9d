package remote

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/hanpama/resgraph/internal/wire/protowire"
)

var (
	storeDesc       protoreflect.ServiceDescriptor
	getMethod       protoreflect.MethodDescriptor
	listMethod      protoreflect.MethodDescriptor
	requestDesc     protoreflect.MessageDescriptor
	memberDesc      protoreflect.MessageDescriptor
	listDesc        protoreflect.MessageDescriptor
	requestURI      protoreflect.FieldDescriptor
	memberDocument  protoreflect.FieldDescriptor
	memberCollected protoreflect.FieldDescriptor
	listMembers     protoreflect.FieldDescriptor
)

func init() {
	fd := protowire.Descriptor()
	storeDesc = fd.Services().ByName("Store")
	if storeDesc == nil {
		panic("remote: Store service missing from wire descriptor")
	}
	getMethod = storeDesc.Methods().ByName("Get")
	listMethod = storeDesc.Methods().ByName("ListMembers")
	requestDesc = getMethod.Input()
	memberDesc = getMethod.Output()
	listDesc = listMethod.Output()
	requestURI = requestDesc.Fields().ByName("uri")
	memberDocument = memberDesc.Fields().ByName("document")
	memberCollected = memberDesc.Fields().ByName("collection")
	listMembers = listDesc.Fields().ByName("members")
}
