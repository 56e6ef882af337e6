package fastpath

import "encoding/xml"

// FeedRecordMsg is the request envelope body for the FeedRecord operation.
// Optional elements are omitted when empty so the service's schema
// validation accepts minimal requests.
type FeedRecordMsg struct {
	MessageID    string `xml:"MessageId"`
	FunctionType int    `xml:"FunctionType"`
	FastList     string `xml:"FastList"`
	Record       string `xml:"Record"`
	ResponseURI  string `xml:"ResponseURI,omitempty"`
	CustomField1 string `xml:"CustomField1,omitempty"`
	CustomField2 string `xml:"CustomField2,omitempty"`
	CustomField3 string `xml:"CustomField3,omitempty"`
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    soapBody `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

type soapBody struct {
	FeedRecord *feedRecordElement `xml:",omitempty"`
}

type feedRecordElement struct {
	XMLName xml.Name `xml:"FeedRecord"`
	FeedRecordMsg
}

// responseEnvelope is the decoded shape of a SOAP 1.1 response, covering both
// success payloads and Fault bodies.
type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault *soapFault `xml:"Fault"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// Fault is a remote-reported SOAP fault. Transport errors are returned as
// plain errors instead; only faults carry a code.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return "SOAP Fault: [" + f.Code + "] " + f.Message
}

// CallResult carries the raw wire bodies of one FeedRecord round trip. Fault
// is non-nil when the service reported a SOAP fault.
type CallResult struct {
	RequestBody  string
	ResponseBody string
	Fault        *Fault
}
