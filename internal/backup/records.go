package backup

import "encoding/xml"

// Constants used by SMS Backup & Restore for multipart messages.
const (
	mmsContentType  = "application/vnd.wap.multipart.related"
	mmsSendReq      = 128 // m_type of a sent message
	mmsRetrieveConf = 132 // m_type of a received message
	addrFrom        = 137
	addrTo          = 151
	charsetUTF8     = 106
	readableLayout  = "Jan 2, 2006 3:04:05 PM"
	unknownContact  = "(Unknown)"
)

type smsRecord struct {
	XMLName       xml.Name `xml:"sms"`
	Protocol      int      `xml:"protocol,attr"`
	Address       string   `xml:"address,attr"`
	Date          int64    `xml:"date,attr"`
	Type          int      `xml:"type,attr"`
	Subject       string   `xml:"subject,attr"`
	Body          string   `xml:"body,attr"`
	Toa           string   `xml:"toa,attr"`
	ScToa         string   `xml:"sc_toa,attr"`
	ServiceCenter string   `xml:"service_center,attr"`
	Read          int      `xml:"read,attr"`
	Status        int      `xml:"status,attr"`
	Locked        int      `xml:"locked,attr"`
	ReadableDate  string   `xml:"readable_date,attr"`
}

type mmsRecord struct {
	XMLName      xml.Name  `xml:"mms"`
	Address      string    `xml:"address,attr"`
	ContentType  string    `xml:"ct_t,attr"`
	Date         int64     `xml:"date,attr"`
	MType        int       `xml:"m_type,attr"`
	MsgBox       int       `xml:"msg_box,attr"`
	Read         int       `xml:"read,attr"`
	Rr           int       `xml:"rr,attr"`
	Seen         int       `xml:"seen,attr"`
	SubID        int       `xml:"sub_id,attr"`
	TextOnly     int       `xml:"text_only,attr"`
	ReadableDate string    `xml:"readable_date,attr"`
	Parts        []mmsPart `xml:"parts>part"`
	Addrs        []mmsAddr `xml:"addrs>addr"`
}

type mmsPart struct {
	Seq         int    `xml:"seq,attr"`
	ContentType string `xml:"ct,attr"`
	Name        string `xml:"name,attr,omitempty"`
	Location    string `xml:"cl,attr,omitempty"`
	Text        string `xml:"text,attr,omitempty"`
	Data        string `xml:"data,attr,omitempty"`
}

type mmsAddr struct {
	Address string `xml:"address,attr"`
	Charset int    `xml:"charset,attr"`
	Type    int    `xml:"type,attr"`
}

type callRecord struct {
	XMLName      xml.Name `xml:"call"`
	Number       string   `xml:"number,attr"`
	Duration     int64    `xml:"duration,attr"`
	Date         int64    `xml:"date,attr"`
	Type         int      `xml:"type,attr"`
	Presentation string   `xml:"presentation,attr"`
	ReadableDate string   `xml:"readable_date,attr"`
	ContactName  string   `xml:"contact_name,attr"`
}
