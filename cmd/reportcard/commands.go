package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/reportcard/internal/docx"
	appI18n "github.com/pavelanni/reportcard/internal/i18n"
	"github.com/pavelanni/reportcard/internal/llm"
	"github.com/pavelanni/reportcard/internal/model"
	"github.com/pavelanni/reportcard/internal/report"
	"github.com/pavelanni/reportcard/internal/store"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate report card documents",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.StringSliceP("student", "s", nil, "Student IDs to generate report cards for (repeatable)")
	f.IntP("grade", "g", -1, "Generate report cards for every student of this grade level")
	f.Bool("open", false, "Open each generated document with the default application")
	commonFlags(f)
	templateFlags(f)
	cmd.MarkFlagsOneRequired("student", "grade")
	return cmd
}

func gradesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grades",
		Short: "Print pooled term and final grades of a grade level as JSON",
		RunE:  runGrades,
	}
	f := cmd.Flags()
	f.IntP("grade", "g", 0, "Grade level (required)")
	f.String("year", "", "School year for output (defaults to the stored school year)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	commonFlags(f)
	_ = cmd.MarkFlagRequired("grade")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import school data JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	commonFlags(cmd.Flags())
	return cmd
}

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage report card templates",
	}
	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a DOCX template in the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runTemplateImport,
	}
	imp.Flags().String("name", docx.DefaultTemplateName, "Logical name to store the template under")
	commonFlags(imp.Flags())
	cmd.AddCommand(imp)
	return cmd
}

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Work with teacher feedback",
	}
	draft := &cobra.Command{
		Use:   "draft",
		Short: "Draft missing feedback for a course with an LLM",
		RunE:  runFeedbackDraft,
	}
	f := draft.Flags()
	f.Int64P("course", "c", 0, "Course ID (required)")
	commonFlags(f)
	llmFlags(f)
	_ = draft.MarkFlagRequired("course")
	cmd.AddCommand(draft)
	return cmd
}

// newLoader returns a loader whose builder labels subjects in the configured
// language and fills school fields from metadata.
func newLoader(ctx context.Context, db *store.Store) (*report.Loader, error) {
	info, err := db.GetSchoolInfo()
	if err != nil {
		return nil, fmt.Errorf("school info: %w", err)
	}
	b := report.NewBuilder()
	b.Extra = report.SchoolFields(info)
	b.Label = func(s report.Subject) string { return appI18n.SubjectLabel(ctx, s.Key) }
	return report.NewLoader(db, b), nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openDeps(v)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signalContext()
	defer stop()
	ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(v.GetString("lang")))

	ids, err := reportStudents(db, v)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no students selected")
	}

	loader, err := newLoader(ctx, db)
	if err != nil {
		return err
	}
	cfg := reportConfig(v)
	templates := docx.FallbackTemplates{db, docx.DirTemplates(v.GetString("template-dir"))}
	synth := docx.NewSynthesizer(templates, cfg.TemplateName, cfg.OutputDir)

	for _, id := range ids {
		fields, err := loader.StudentMapping(id)
		if err != nil {
			return err
		}
		path, err := synth.Generate(ctx, fields)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), appI18n.ErrorMessage(ctx, err))
			return fmt.Errorf("student %d: %w", id, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		if v.GetBool("open") {
			if err := docx.Open(ctx, path); err != nil {
				slog.Warn("could not open report", "path", path, "error", err)
			}
		}
	}
	return nil
}

// reportStudents resolves --student and --grade into student IDs.
func reportStudents(db *store.Store, v *viper.Viper) ([]int64, error) {
	ids, err := parseIDs(v.GetStringSlice("student"))
	if err != nil {
		return nil, err
	}
	grade := v.GetInt("grade")
	if grade < 0 {
		return ids, nil
	}
	students, err := db.ListStudents()
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	for _, s := range students {
		if s.GradeLevel == grade {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// parseIDs converts the --student values to IDs.
func parseIDs(raw []string) ([]int64, error) {
	var ids []int64
	for _, r := range raw {
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid student ID %q: %w", r, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runGrades(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openDeps(v)
	if err != nil {
		return err
	}
	defer db.Close()

	loader, err := newLoader(context.Background(), db)
	if err != nil {
		return err
	}
	level := v.GetInt("grade")
	reports, courses, err := loader.GradeReport(level)
	if err != nil {
		return fmt.Errorf("grade report: %w", err)
	}

	year := v.GetString("year")
	if year == "" {
		info, err := db.GetSchoolInfo()
		if err != nil {
			return err
		}
		year = info.Year
	}
	if year == "" {
		year = strconv.Itoa(time.Now().Year())
	}

	data, err := json.MarshalIndent(report.Export(level, year, reports, courses), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openDeps(v)
	if err != nil {
		return err
	}
	defer db.Close()

	return importSchoolFiles(db, args)
}

// importSchoolFiles loads each file unless the same content was already
// imported from that path. A file changed since its last import is imported
// again; rows are updated by ID.
func importSchoolFiles(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("school file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("school file changed since last import, updating records", "path", path)
		}

		var school model.SchoolImport
		if err := json.Unmarshal(data, &school); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		sum, err := db.ImportSchool(school)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported school data", "path", path,
			"students", sum.Students, "courses", sum.Courses, "assignments", sum.Assignments,
			"marks", sum.Marks, "feedback", sum.Feedback)
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func runTemplateImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openDeps(v)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if err := docx.CheckTemplate(data); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	name := v.GetString("name")
	if name == "" {
		name = filepath.Base(args[0])
	}
	if err := db.PutTemplate(name, data); err != nil {
		return fmt.Errorf("store template: %w", err)
	}
	slog.Info("stored template", "name", name, "bytes", len(data))
	return nil
}

func runFeedbackDraft(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openDeps(v)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := reportConfig(v)
	client := newDrafter(v, cfg.FeedbackTone)
	if client == nil {
		return fmt.Errorf("feedback drafting needs --llm-url (or REPORTCARD_LLM_URL)")
	}

	ctx, stop := signalContext()
	defer stop()
	ctx = model.ContextWithLang(ctx, cfg.Lang)

	n, err := llm.DraftCourseFeedback(ctx, client, db, v.GetInt64("course"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "drafted %d notes\n", n)
	return nil
}
