package protowire

import (
	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Package name and file path of the built descriptor.
const (
	packageName = "resgraph.wire.v1"
	filePath    = "resgraph/wire/v1/document.proto"

	// StoreService is the full name of the member store service.
	StoreService = packageName + ".Store"
)

var fileDesc protoreflect.FileDescriptor

var (
	documentDesc  protoreflect.MessageDescriptor
	propertyDesc  protoreflect.MessageDescriptor
	dateDesc      protoreflect.MessageDescriptor
	referenceDesc protoreflect.MessageDescriptor
	refListDesc   protoreflect.MessageDescriptor
	propValue     protoreflect.OneofDescriptor
)

var docID, docProperties, docMembers protoreflect.FieldDescriptor

var propName, propNull, propString, propBool, propInt, propUint protoreflect.FieldDescriptor

var propDouble, propDate, propBinary, propReference, propReferences protoreflect.FieldDescriptor

var dateSeconds, dateNanos, refURI, refListRefs protoreflect.FieldDescriptor

func init() {
	fd, err := buildFile()
	if err != nil {
		panic("protowire: descriptor initialization failed: " + err.Error())
	}
	fileDesc = fd
	msgs := fd.Messages()
	documentDesc = msgs.ByName("Document")
	propertyDesc = msgs.ByName("Property")
	dateDesc = msgs.ByName("Date")
	referenceDesc = msgs.ByName("Reference")
	refListDesc = msgs.ByName("ReferenceList")

	df := documentDesc.Fields()
	docID, docProperties, docMembers = df.ByName("id"), df.ByName("properties"), df.ByName("members")

	pf := propertyDesc.Fields()
	propName = pf.ByName("name")
	propNull = pf.ByName("null_value")
	propString = pf.ByName("string_value")
	propBool = pf.ByName("bool_value")
	propInt = pf.ByName("int_value")
	propUint = pf.ByName("uint_value")
	propDouble = pf.ByName("double_value")
	propDate = pf.ByName("date_value")
	propBinary = pf.ByName("binary_value")
	propReference = pf.ByName("reference")
	propReferences = pf.ByName("references")
	propValue = propertyDesc.Oneofs().ByName("value")

	dateSeconds, dateNanos = dateDesc.Fields().ByName("seconds"), dateDesc.Fields().ByName("nanos")
	refURI = referenceDesc.Fields().ByName("uri")
	refListRefs = refListDesc.Fields().ByName("refs")
}

// Descriptor returns the file descriptor of the wire schema:
//
//	message Document { string id = 1; repeated Property properties = 2; repeated Document members = 3; }
//	message Property { string name = 1; oneof value { ... } }
//	message Date { int64 seconds = 1; int32 nanos = 2; }
//	message Reference { string uri = 1; }
//	message ReferenceList { repeated Reference refs = 1; }
//	message Member { Document document = 1; bool collection = 2; }
//	message ResourceRequest { string uri = 1; }
//	message ListMembersResponse { repeated Member members = 1; }
//	service Store {
//	  rpc Get(ResourceRequest) returns (Member);
//	  rpc ListMembers(ResourceRequest) returns (ListMembersResponse);
//	}
func Descriptor() protoreflect.FileDescriptor { return fileDesc }

func field(name protoreflect.Name, number int32, typ *protobuilder.FieldType) *protobuilder.FieldBuilder {
	fb := protobuilder.NewField(name, typ)
	fb.SetNumber(protoreflect.FieldNumber(number))
	return fb
}

func scalar(kind protoreflect.Kind) *protobuilder.FieldType {
	return protobuilder.FieldTypeScalar(kind)
}

func buildFile() (protoreflect.FileDescriptor, error) {
	file := protobuilder.NewFile(filePath)
	file.SetPackageName(protoreflect.FullName(packageName))
	file.SetSyntax(protoreflect.Proto3)

	date := protobuilder.NewMessage("Date")
	date.AddField(field("seconds", 1, scalar(protoreflect.Int64Kind)))
	date.AddField(field("nanos", 2, scalar(protoreflect.Int32Kind)))

	ref := protobuilder.NewMessage("Reference")
	ref.AddField(field("uri", 1, scalar(protoreflect.StringKind)))

	refList := protobuilder.NewMessage("ReferenceList")
	refList.AddField(field("refs", 1, protobuilder.FieldTypeMessage(ref)).SetRepeated())

	prop := protobuilder.NewMessage("Property")
	prop.AddField(field("name", 1, scalar(protoreflect.StringKind)))
	value := protobuilder.NewOneof("value")
	prop.AddOneOf(value)
	value.AddChoice(field("null_value", 2, scalar(protoreflect.BoolKind)))
	value.AddChoice(field("string_value", 3, scalar(protoreflect.StringKind)))
	value.AddChoice(field("bool_value", 4, scalar(protoreflect.BoolKind)))
	value.AddChoice(field("int_value", 5, scalar(protoreflect.Sint64Kind)))
	value.AddChoice(field("uint_value", 6, scalar(protoreflect.Uint64Kind)))
	value.AddChoice(field("double_value", 7, scalar(protoreflect.DoubleKind)))
	value.AddChoice(field("date_value", 8, protobuilder.FieldTypeMessage(date)))
	value.AddChoice(field("binary_value", 9, scalar(protoreflect.BytesKind)))
	value.AddChoice(field("reference", 10, protobuilder.FieldTypeMessage(ref)))
	value.AddChoice(field("references", 11, protobuilder.FieldTypeMessage(refList)))

	doc := protobuilder.NewMessage("Document")
	doc.AddField(field("id", 1, scalar(protoreflect.StringKind)))
	doc.AddField(field("properties", 2, protobuilder.FieldTypeMessage(prop)).SetRepeated())
	doc.AddField(field("members", 3, protobuilder.FieldTypeMessage(doc)).SetRepeated())

	// Store serves resources one level at a time. A Member carries its
	// document without members; collections are listed with ListMembers.
	member := protobuilder.NewMessage("Member")
	member.AddField(field("document", 1, protobuilder.FieldTypeMessage(doc)))
	member.AddField(field("collection", 2, scalar(protoreflect.BoolKind)))

	req := protobuilder.NewMessage("ResourceRequest")
	req.AddField(field("uri", 1, scalar(protoreflect.StringKind)))

	list := protobuilder.NewMessage("ListMembersResponse")
	list.AddField(field("members", 1, protobuilder.FieldTypeMessage(member)).SetRepeated())

	svc := protobuilder.NewService("Store")
	svc.AddMethod(protobuilder.NewMethod("Get",
		protobuilder.RpcTypeMessage(req, false),
		protobuilder.RpcTypeMessage(member, false)))
	svc.AddMethod(protobuilder.NewMethod("ListMembers",
		protobuilder.RpcTypeMessage(req, false),
		protobuilder.RpcTypeMessage(list, false)))

	file.AddMessage(doc)
	file.AddMessage(prop)
	file.AddMessage(date)
	file.AddMessage(ref)
	file.AddMessage(refList)
	file.AddMessage(member)
	file.AddMessage(req)
	file.AddMessage(list)
	file.AddService(svc)
	return file.Build()
}
