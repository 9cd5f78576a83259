package dicom

// VR is a DICOM value representation code.
type VR string

const (
	VRAE VR = "AE"
	VRCS VR = "CS"
	VRDA VR = "DA"
	VRDS VR = "DS"
	VRDT VR = "DT"
	VRIS VR = "IS"
	VRLO VR = "LO"
	VRLT VR = "LT"
	VRPN VR = "PN"
	VRSH VR = "SH"
	VRSQ VR = "SQ"
	VRST VR = "ST"
	VRTM VR = "TM"
	VRUI VR = "UI"
	VRUR VR = "UR"
	VRUS VR = "US"
	VRUN VR = "UN"
)

// IsDateTime reports whether the VR holds date/time-formatted strings.
func (v VR) IsDateTime() bool {
	return v == VRDA || v == VRDT || v == VRTM
}

// IsString reports whether values of this VR are compared as strings
// (including person names and UIDs).
func (v VR) IsString() bool {
	switch v {
	case VRAE, VRCS, VRLO, VRLT, VRPN, VRSH, VRST, VRUI, VRUR:
		return true
	}
	return false
}

// Well-known tags. The set covers the UPS attributes the service reads or
// writes directly plus the DIMSE-style event-report envelope elements.
const (
	TagAffectedSOPClassUID    Tag = 0x00000002
	TagMessageID              Tag = 0x00000110
	TagAffectedSOPInstanceUID Tag = 0x00001000
	TagEventTypeID            Tag = 0x00001002

	TagSOPClassUID          Tag = 0x00080016
	TagSOPInstanceUID       Tag = 0x00080018
	TagRetrieveAETitle      Tag = 0x00080054
	TagInstanceAvailability Tag = 0x00080056
	TagModality             Tag = 0x00080060
	TagCodeValue            Tag = 0x00080100
	TagCodingSchemeDesig    Tag = 0x00080102
	TagCodeMeaning          Tag = 0x00080104
	TagTransactionUID       Tag = 0x00081195

	TagPatientName      Tag = 0x00100010
	TagPatientID        Tag = 0x00100020
	TagPatientBirthDate Tag = 0x00100030
	TagPatientSex       Tag = 0x00100040

	TagScheduledStationAETitle Tag = 0x00400001

	TagScheduledProcStepStartDateTime Tag = 0x00404005
	TagScheduledProcStepModDateTime   Tag = 0x00404010
	TagExpectedCompletionDateTime     Tag = 0x00404011
	TagScheduledWorkitemCodeSeq       Tag = 0x00404018
	TagScheduledStationNameCodeSeq    Tag = 0x00404025
	TagScheduledStationClassCodeSeq   Tag = 0x00404026
	TagScheduledStationGeoCodeSeq     Tag = 0x00404027
	TagHumanPerformerCodeSeq          Tag = 0x00404009
	TagScheduledHumanPerformersSeq    Tag = 0x00404034
	TagHumanPerformersOrgSeq          Tag = 0x00404036
	TagInputReadinessState            Tag = 0x00404041

	TagProcedureStepState        Tag = 0x00741000
	TagProcStepProgressInfoSeq   Tag = 0x00741002
	TagProcedureStepProgress     Tag = 0x00741004
	TagProcStepProgressDesc      Tag = 0x00741006
	TagProcStepCommunicationsSeq Tag = 0x00741008
	TagContactURI                Tag = 0x0074100A
	TagContactDisplayName        Tag = 0x0074100C
	TagWorklistLabel             Tag = 0x00741202
	TagProcedureStepLabel        Tag = 0x00741204
	TagReceivingAE               Tag = 0x00741234
	TagRequestingAE              Tag = 0x00741236
	TagReasonForCancellation     Tag = 0x00741238
	TagSCPStatus                 Tag = 0x00741242
	TagSubscriptionListStatus    Tag = 0x00741244
	TagUPSListStatus             Tag = 0x00741246
)

type dictEntry struct {
	Tag     Tag
	VR      VR
	Keyword string
}

var dictionary = []dictEntry{
	{TagAffectedSOPClassUID, VRUI, "AffectedSOPClassUID"},
	{TagMessageID, VRUS, "MessageID"},
	{TagAffectedSOPInstanceUID, VRUI, "AffectedSOPInstanceUID"},
	{TagEventTypeID, VRUS, "EventTypeID"},
	{TagSOPClassUID, VRUI, "SOPClassUID"},
	{TagSOPInstanceUID, VRUI, "SOPInstanceUID"},
	{TagRetrieveAETitle, VRAE, "RetrieveAETitle"},
	{TagInstanceAvailability, VRCS, "InstanceAvailability"},
	{TagModality, VRCS, "Modality"},
	{TagCodeValue, VRSH, "CodeValue"},
	{TagCodingSchemeDesig, VRSH, "CodingSchemeDesignator"},
	{TagCodeMeaning, VRLO, "CodeMeaning"},
	{TagTransactionUID, VRUI, "TransactionUID"},
	{TagPatientName, VRPN, "PatientName"},
	{TagPatientID, VRLO, "PatientID"},
	{TagPatientBirthDate, VRDA, "PatientBirthDate"},
	{TagPatientSex, VRCS, "PatientSex"},
	{TagScheduledStationAETitle, VRAE, "ScheduledStationAETitle"},
	{TagScheduledProcStepStartDateTime, VRDT, "ScheduledProcedureStepStartDateTime"},
	{TagScheduledProcStepModDateTime, VRDT, "ScheduledProcedureStepModificationDateTime"},
	{TagExpectedCompletionDateTime, VRDT, "ExpectedCompletionDateTime"},
	{TagScheduledWorkitemCodeSeq, VRSQ, "ScheduledWorkitemCodeSequence"},
	{TagScheduledStationNameCodeSeq, VRSQ, "ScheduledStationNameCodeSequence"},
	{TagScheduledStationClassCodeSeq, VRSQ, "ScheduledStationClassCodeSequence"},
	{TagScheduledStationGeoCodeSeq, VRSQ, "ScheduledStationGeographicLocationCodeSequence"},
	{TagHumanPerformerCodeSeq, VRSQ, "HumanPerformerCodeSequence"},
	{TagScheduledHumanPerformersSeq, VRSQ, "ScheduledHumanPerformersSequence"},
	{TagHumanPerformersOrgSeq, VRSQ, "HumanPerformersOrganizationSequence"},
	{TagInputReadinessState, VRCS, "InputReadinessState"},
	{TagProcedureStepState, VRCS, "ProcedureStepState"},
	{TagProcStepProgressInfoSeq, VRSQ, "ProcedureStepProgressInformationSequence"},
	{TagProcedureStepProgress, VRDS, "ProcedureStepProgress"},
	{TagProcStepProgressDesc, VRST, "ProcedureStepProgressDescription"},
	{TagProcStepCommunicationsSeq, VRSQ, "ProcedureStepCommunicationsURISequence"},
	{TagContactURI, VRUR, "ContactURI"},
	{TagContactDisplayName, VRLO, "ContactDisplayName"},
	{TagWorklistLabel, VRLO, "WorklistLabel"},
	{TagProcedureStepLabel, VRLO, "ProcedureStepLabel"},
	{TagReceivingAE, VRAE, "ReceivingAE"},
	{TagRequestingAE, VRAE, "RequestingAE"},
	{TagReasonForCancellation, VRLT, "ReasonForCancellation"},
	{TagSCPStatus, VRCS, "SCPStatus"},
	{TagSubscriptionListStatus, VRCS, "SubscriptionListStatus"},
	{TagUPSListStatus, VRCS, "UnifiedProcedureStepListStatus"},
}

var (
	dictByTag     = map[Tag]dictEntry{}
	dictByKeyword = map[string]dictEntry{}
)

func init() {
	for _, e := range dictionary {
		dictByTag[e.Tag] = e
		dictByKeyword[e.Keyword] = e
	}
}

// VROf returns the dictionary VR for a tag, or VRUN when unknown.
func VROf(t Tag) VR {
	if e, ok := dictByTag[t]; ok {
		return e.VR
	}
	return VRUN
}

// KeywordOf returns the dictionary keyword for a tag, or "" when unknown.
func KeywordOf(t Tag) string {
	return dictByTag[t].Keyword
}

// LookupKeyword resolves a dictionary keyword to its tag and VR.
func LookupKeyword(kw string) (Tag, VR, bool) {
	e, ok := dictByKeyword[kw]
	return e.Tag, e.VR, ok
}

// ResolveTagOrKeyword accepts either an 8-hex-digit tag code or a dictionary
// keyword and resolves it to a tag plus its VR. Unknown hex tags resolve with
// VRUN; unknown keywords fail.
func ResolveTagOrKeyword(s string) (Tag, VR, bool) {
	if t, err := ParseTag(s); err == nil {
		return t, VROf(t), true
	}
	return LookupKeyword(s)
}
