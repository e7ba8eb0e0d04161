package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/utils"
)

const (
	TemplateSheet        = "Auction Template"
	InstructionsSheet    = "Instructions"
	TemplateFilename     = "auction-template.xlsx"
	TemplateContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MsgMissingFields     = "Missing required fields"
	MsgInvalidTemplate   = "Invalid template data"
	MsgInvalidFileType   = "Invalid file type. Please upload an Excel file (.xlsx or .xlsm)"
	MsgUnreadableFile    = "Could not read the uploaded spreadsheet"
	templateNote         = "Note: Fields marked with * are required"
	templateInstructions = "Instructions for Filling the Auction Template"
)

// templateField is one input row of the auction sheet.
type templateField struct {
	key     string
	cell    string
	label   string
	hint    string
	options []string
	// enum maps option labels to stored values; nil keeps the label.
	enum  map[string]string
	error string
}

var templateFields = []templateField{
	{key: "freight", cell: "C3", label: "Freight *", hint: "Options: Truck Load, Less than Truck Load",
		options: []string{"Truck Load", "Less than Truck Load"},
		error:   "Please select either Truck Load or Less than Truck Load"},
	{key: "from", cell: "C5", label: "From Location *", hint: "Enter the pickup location (city, state)"},
	{key: "to", cell: "C7", label: "To Location *", hint: "Enter the delivery location (city, state)"},
	{key: "vehicle", cell: "C9", label: "Vehicle Type *", hint: "Options: Urban Cargo, Rural Cargo, Truck, Heavy Truck",
		options: []string{"Urban Cargo", "Rural Cargo", "Truck", "Heavy Truck"},
		enum: map[string]string{
			"Urban Cargo": string(models.VehicleUrbanCargo),
			"Rural Cargo": string(models.VehicleRuralCargo),
			"Truck":       string(models.VehicleTruck),
			"Heavy Truck": string(models.VehicleHeavyTruck),
		},
		error: "Please select a valid vehicle type"},
	{key: "type", cell: "C11", label: "Service Type *", hint: "Options: Fleet, Third Part",
		options: []string{"Fleet", "Third Part"},
		enum:    map[string]string{"Fleet": string(models.ServiceFleet), "Third Part": string(models.ServiceThirdPart)},
		error:   "Please select either Fleet or Third Part"},
	{key: "tracking", cell: "C13", label: "Tracking Service *", hint: "Options: Real Time, No",
		options: []string{"Real Time", "No"},
		enum:    map[string]string{"Real Time": string(models.TrackingRealTime), "No": string(models.TrackingNo)},
		error:   "Please select either Real Time or No"},
	{key: "insurance", cell: "C15", label: "Insurance *", hint: "Options: Yes, No",
		options: []string{"Yes", "No"},
		enum:    map[string]string{"Yes": string(models.InsuranceYes), "No": string(models.InsuranceNo)},
		error:   "Please select either Yes or No"},
	{key: "description", cell: "C17", label: "Auction Description *", hint: "Provide detailed information about the auction requirements"},
}

var instructionRows = [][]string{
	{templateInstructions},
	{""},
	{"1. General Guidelines:"},
	{"   - Fields marked with * are mandatory"},
	{"   - Use the dropdown menus where available"},
	{"   - Do not modify the template structure"},
	{""},
	{"2. Field Descriptions:"},
	{"   Freight:", "   Choose between Truck Load or Less than Truck Load based on your cargo volume"},
	{"   From Location:", "   Specify the complete pickup address"},
	{"   To Location:", "   Specify the complete delivery address"},
	{"   Vehicle Type:", "   Select the appropriate vehicle based on cargo size and route type"},
	{"   Service Type:", "   Choose Fleet for company vehicles or Third Part for external services"},
	{"   Tracking:", "   Select if you need real-time tracking of the shipment"},
	{"   Insurance:", "   Indicate if cargo insurance is required"},
	{"   Description:", "   Provide any additional details, requirements, or special instructions"},
	{""},
	{"3. Important Notes:"},
	{"   - Ensure all locations are clearly specified"},
	{"   - Vehicle selection should match cargo requirements"},
	{"   - Insurance selection should comply with cargo value and type"},
	{"   - Description should include any special handling instructions"},
	{""},
	{"4. After Filling:"},
	{"   - Review all entries for accuracy"},
	{"   - Save the file"},
	{"   - Upload through the auction creation page"},
	{"   - System will validate all entries before proceeding"},
}

// ITemplateArchive keeps a copy of uploaded templates.
type ITemplateArchive interface {
	ArchiveTemplate(ctx context.Context, userID int64, filename string, data []byte) (string, error)
}

// ITemplateService builds the auction spreadsheet and reads filled-in copies back.
type ITemplateService interface {
	Generate() (*bytes.Buffer, error)
	Extract(data []byte) (*models.AuctionDetail, error)
	ValidateUpload(ctx context.Context, userID int64, filename string, data []byte) (*models.AuctionDetail, error)
}

type templateService struct {
	archive ITemplateArchive
}

// NewTemplateService creates an ITemplateService. archive may be nil.
func NewTemplateService(archive ITemplateArchive) ITemplateService {
	return &templateService{archive: archive}
}

// Generate renders the auction template workbook.
func (s *templateService) Generate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return nil, fmt.Errorf("failed to name template sheet: %w", err)
	}
	if err := s.writeTemplateSheet(f); err != nil {
		return nil, err
	}
	if err := s.writeInstructionsSheet(f); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write template workbook: %w", err)
	}
	return buf, nil
}

func (s *templateService) writeTemplateSheet(f *excelize.File) error {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	labelStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"F0F0F0"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return fmt.Errorf("failed to create label style: %w", err)
	}
	hintStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Italic: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return fmt.Errorf("failed to create hint style: %w", err)
	}
	inputStyle, err := f.NewStyle(&excelize.Style{
		Border:     border,
		Protection: &excelize.Protection{Locked: false},
	})
	if err != nil {
		return fmt.Errorf("failed to create input style: %w", err)
	}
	noteStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true, Color: "666666"}})
	if err != nil {
		return fmt.Errorf("failed to create note style: %w", err)
	}

	sheet := TemplateSheet
	if err := f.SetCellValue(sheet, "A1", TemplateSheet); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", "C1"); err != nil {
		return fmt.Errorf("failed to merge title: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", titleStyle); err != nil {
		return err
	}

	for _, field := range templateFields {
		row := strings.TrimPrefix(field.cell, "C")
		if err := f.SetCellValue(sheet, "A"+row, field.label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, "B"+row, field.hint); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A"+row, "A"+row, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "B"+row, "B"+row, hintStyle); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, field.cell, field.cell, inputStyle); err != nil {
			return err
		}
		if len(field.options) == 0 {
			continue
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = field.cell
		if err := dv.SetDropList(field.options); err != nil {
			return fmt.Errorf("failed to build %s dropdown: %w", field.key, err)
		}
		dv.SetError(excelize.DataValidationErrorStyleStop, "Invalid value", field.error)
		if err := f.AddDataValidation(sheet, dv); err != nil {
			return fmt.Errorf("failed to add %s dropdown: %w", field.key, err)
		}
	}

	if err := f.SetCellValue(sheet, "A19", templateNote); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A19", "A19", noteStyle); err != nil {
		return err
	}

	for col, width := range map[string]float64{"A": 25, "B": 50, "C": 30} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	return f.ProtectSheet(sheet, &excelize.SheetProtectionOptions{
		SelectLockedCells:   true,
		SelectUnlockedCells: true,
	})
}

func (s *templateService) writeInstructionsSheet(f *excelize.File) error {
	if _, err := f.NewSheet(InstructionsSheet); err != nil {
		return fmt.Errorf("failed to add instructions sheet: %w", err)
	}
	for i, row := range instructionRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(InstructionsSheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(InstructionsSheet, "A", "A", 25); err != nil {
		return err
	}
	return f.SetColWidth(InstructionsSheet, "B", "B", 75)
}

// Extract reads a filled template from the first sheet and maps the
// dropdown labels to their stored values.
func (s *templateService) Extract(data []byte) (*models.AuctionDetail, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, auctionerrors.NewValidationError(MsgUnreadableFile,
			auctionerrors.FieldError{Field: "file", Message: err.Error(), Code: "invalid_file"})
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, auctionerrors.NewValidationError("Empty workbook")
	}

	values := make(map[string]string, len(templateFields))
	var missing []auctionerrors.FieldError
	for _, field := range templateFields {
		v, err := f.GetCellValue(sheets[0], field.cell)
		if err != nil {
			return nil, auctionerrors.NewValidationError(MsgUnreadableFile,
				auctionerrors.FieldError{Field: field.key, Message: err.Error(), Code: "invalid_cell"})
		}
		v = strings.TrimSpace(v)
		if v == "" {
			missing = append(missing, auctionerrors.FieldError{Field: field.key, Message: "is required", Code: "required"})
			continue
		}
		values[field.key] = v
	}
	if len(missing) > 0 {
		return nil, auctionerrors.NewValidationError(MsgMissingFields, missing...)
	}

	var invalid []auctionerrors.FieldError
	for _, field := range templateFields {
		if len(field.options) == 0 {
			continue
		}
		label := values[field.key]
		if !slices.Contains(field.options, label) {
			invalid = append(invalid, auctionerrors.FieldError{
				Field:   field.key,
				Message: "must be one of: " + strings.Join(field.options, ", "),
				Code:    "invalid_enum_value",
			})
			continue
		}
		if field.enum != nil {
			values[field.key] = field.enum[label]
		}
	}
	if len(invalid) > 0 {
		return nil, auctionerrors.NewValidationError(MsgInvalidTemplate, invalid...)
	}

	return &models.AuctionDetail{
		Description: values["description"],
		Freight:     values["freight"],
		From:        values["from"],
		To:          values["to"],
		Vehicle:     models.VehicleClass(values["vehicle"]),
		Type:        models.ServiceType(values["type"]),
		Tracking:    models.TrackingOption(values["tracking"]),
		Insurance:   models.InsuranceOption(values["insurance"]),
	}, nil
}

// ValidateUpload checks the file type, extracts the detail and archives the
// upload. Archive failures are logged and do not fail the request.
func (s *templateService) ValidateUpload(ctx context.Context, userID int64, filename string, data []byte) (*models.AuctionDetail, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
	default:
		return nil, auctionerrors.NewValidationError(MsgInvalidFileType,
			auctionerrors.FieldError{Field: "file", Message: "unsupported extension", Code: "invalid_file_type"})
	}

	detail, err := s.Extract(data)
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		key, err := s.archive.ArchiveTemplate(ctx, userID, filepath.Base(filename), data)
		if err != nil {
			utils.Warn("failed to archive uploaded template", map[string]any{"user_id": userID, "error": err.Error()})
		} else {
			utils.Info("uploaded template archived", map[string]any{"user_id": userID, "key": key})
		}
	}
	return detail, nil
}
