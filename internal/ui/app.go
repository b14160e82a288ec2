package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"posecompare/internal/config"
	"posecompare/internal/presenter"
	"posecompare/internal/ui/cwidget"
	"posecompare/processing/capture"
	"posecompare/processing/pose"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"
)

// Deps are the pipeline components the window drives.
type Deps struct {
	Config     *config.Config
	Session    *capture.Session
	Uploader   *pose.ReferenceUploader
	Comparator *pose.CaptureComparator
	Presenter  *presenter.Presenter
	Log        *zap.Logger
}

type PoseApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	Deps

	uploadBtn  *widget.Button
	startBtn   *widget.Button
	stopBtn    *widget.Button
	captureBtn *widget.Button
	viewBtn    *widget.Button
	exportBtn  *widget.Button

	uploadStatus    *widget.Label
	previewStatus   *widget.Label
	referenceCanvas *canvas.Image
	videoCanvas     *canvas.Image

	distanceLabel *widget.Label
	detectedLabel *widget.Label
	accuracyLabel *widget.Label
	qualityLabel  *widget.Label
	resultsLabel  *widget.Label

	formatSelect   *widget.Select
	historyTable   *widget.Table
	historyMessage *widget.Label
	history        presenter.Table

	sourceSettings *fyne.Container
	stopPlayer     chan struct{}
}

func CreateApp(d Deps) *PoseApp {
	a := app.New()
	w := a.NewWindow("Pose Comparison")

	w.Resize(fyne.NewSize(1280, 760))

	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	return &PoseApp{
		fyneApp: a,
		mainWin: w,
		Deps:    d,
	}
}

func (a *PoseApp) Run() {
	a.Uploader.OnPreview = a.showPreview

	split := container.NewHSplit(
		container.NewVScroll(container.NewPadded(a.buildSidebar())),
		container.NewPadded(a.buildMain()),
	)
	split.SetOffset(0.3)

	a.mainWin.SetContent(split)
	a.syncCameraButtons()

	a.mainWin.SetCloseIntercept(func() {
		a.stopPlayerLoop()
		a.Session.Stop()
		if err := a.Config.SaveToSource(); err != nil {
			a.Log.Warn("config not saved", zap.Error(err))
		}
		a.mainWin.Close()
	})

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *PoseApp) buildSidebar() fyne.CanvasObject {
	a.uploadStatus = widget.NewLabel("Upload a reference pose to begin.")
	a.uploadStatus.Wrapping = fyne.TextWrapWord
	a.previewStatus = widget.NewLabel("")
	a.previewStatus.Hidden = true

	a.referenceCanvas = canvas.NewImageFromImage(nil)
	a.referenceCanvas.FillMode = canvas.ImageFillContain
	a.referenceCanvas.SetMinSize(fyne.NewSize(240, 180))

	a.uploadBtn = widget.NewButtonWithIcon("Upload Reference", theme.UploadIcon(), a.onUpload)

	a.sourceSettings = container.NewVBox()

	sourceSelect := widget.NewSelect(config.SourcesList[:], func(s string) {
		a.Config.SetSource(config.SourceType(s))
		a.refreshSourceSettings(config.SourceType(s))
	})
	sourceSelect.SetSelected(string(a.Config.GetSource()))

	return container.NewVBox(
		widget.NewLabelWithStyle("Reference Pose", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		a.uploadBtn,
		a.uploadStatus,
		a.referenceCanvas,
		a.previewStatus,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Camera", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Source Type:"),
		sourceSelect,
		a.sourceSettings,
		a.buildCaptureSettings(),
		widget.NewSeparator(),
		widget.NewLabel("Backend: "+a.Config.GetBackendURL()),
	)
}

func (a *PoseApp) buildCaptureSettings() fyne.CanvasObject {
	widthInput := cwidget.NewRangeInput("Preferred width", a.Config.GetWidth(), 160, 3840, a.Config.SetWidth)
	heightInput := cwidget.NewRangeInput("Preferred height", a.Config.GetHeight(), 120, 2160, a.Config.SetHeight)

	fpsInput := cwidget.NewRangeInput("FPS", int(a.Config.GetFPS()), 1, 60, func(i int) {
		a.Config.SetFPS(uint(i))
	})

	qualityInput := cwidget.NewRangeInput("JPEG quality", a.Config.GetJPEGQuality(), 1, 100, func(i int) {
		a.Config.SetJPEGQuality(i)
		a.Comparator.SetQuality(i)
	})

	return container.NewVBox(widthInput, heightInput, fpsInput, qualityInput)
}

func (a *PoseApp) buildMain() fyne.CanvasObject {
	a.videoCanvas = canvas.NewImageFromImage(nil)
	a.videoCanvas.FillMode = canvas.ImageFillContain
	a.videoCanvas.SetMinSize(fyne.NewSize(640, 480))

	a.startBtn = widget.NewButtonWithIcon("Start Camera", theme.MediaPlayIcon(), a.onStartCamera)
	a.stopBtn = widget.NewButtonWithIcon("Stop Camera", theme.MediaStopIcon(), a.onStopCamera)
	a.captureBtn = widget.NewButtonWithIcon("Capture & Compare", theme.MediaRecordIcon(), a.onCapture)

	a.distanceLabel = widget.NewLabel("-")
	a.detectedLabel = widget.NewLabel("-")
	a.accuracyLabel = widget.NewLabel("-")
	a.qualityLabel = widget.NewLabel("-")
	a.resultsLabel = widget.NewLabel("")
	a.resultsLabel.Wrapping = fyne.TextWrapWord

	metrics := container.NewGridWithColumns(4,
		widget.NewLabelWithStyle("Distance", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabelWithStyle("Pose Detected", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabelWithStyle("Accuracy", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabelWithStyle("Quality", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		a.distanceLabel, a.detectedLabel, a.accuracyLabel, a.qualityLabel,
	)

	live := container.NewBorder(
		container.NewHBox(a.startBtn, a.stopBtn, a.captureBtn),
		container.NewVBox(metrics, a.resultsLabel),
		nil, nil,
		a.videoCanvas,
	)

	return container.NewVSplit(live, a.buildHistory())
}

func (a *PoseApp) buildHistory() fyne.CanvasObject {
	a.historyMessage = widget.NewLabel("")

	a.historyTable = widget.NewTable(
		func() (int, int) {
			if a.history.Empty() {
				return 0, 0
			}
			return len(a.history.Rows) + 1, len(a.history.Columns)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("accuracy_score")
		},
		func(id widget.TableCellID, o fyne.CanvasObject) {
			l := o.(*widget.Label)
			if id.Row == 0 {
				l.TextStyle = fyne.TextStyle{Bold: true}
				l.SetText(a.history.Columns[id.Col])
				return
			}
			l.TextStyle = fyne.TextStyle{}
			l.SetText(a.history.Rows[id.Row-1][id.Col])
		},
	)

	formats := make([]string, 0, len(presenter.Formats))
	for _, f := range presenter.Formats {
		formats = append(formats, string(f))
	}
	a.formatSelect = widget.NewSelect(formats, nil)
	a.formatSelect.SetSelected(string(presenter.FormatCSV))

	a.viewBtn = widget.NewButtonWithIcon("View Data", theme.ListIcon(), a.onViewHistory)
	a.exportBtn = widget.NewButtonWithIcon("Download", theme.DocumentSaveIcon(), a.onExport)

	return container.NewBorder(
		container.NewHBox(a.viewBtn, a.exportBtn, a.formatSelect, a.historyMessage),
		nil, nil, nil,
		a.historyTable,
	)
}

func (a *PoseApp) onUpload() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if reader == nil {
			return
		}

		path := reader.URI().Path()
		reader.Close()

		a.uploadBtn.Disable()
		a.uploadStatus.SetText("Uploading reference image...")

		go func() {
			out, _ := a.Uploader.Upload(context.Background(), pose.ImageFileFromPath(path))

			fyne.Do(func() {
				a.uploadBtn.Enable()
				if out.Accepted {
					a.uploadStatus.SetText("✓ " + out.Message)
				} else {
					a.uploadStatus.SetText("✗ Error: " + out.Message)
				}
				a.syncCameraButtons()
			})
		}()
	}, a.mainWin)

	d.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif"}))
	d.Show()
}

func (a *PoseApp) showPreview(p pose.Preview) {
	fyne.Do(func() {
		if p.Err != nil {
			a.previewStatus.SetText("Preview unavailable: " + p.Err.Error())
			a.previewStatus.Show()
			return
		}

		a.previewStatus.Hide()
		a.referenceCanvas.Image = p.Image
		a.referenceCanvas.Refresh()
	})
}

func (a *PoseApp) onStartCamera() {
	a.startBtn.Disable()
	a.setResults("Starting camera...")

	go func() {
		err := a.Session.Start(context.Background())

		fyne.Do(func() {
			a.syncCameraButtons()

			if err != nil {
				a.setResults(cameraErrorText(err))
				return
			}

			a.setResults(`Camera started. Click "Capture & Compare" to analyze your pose.`)
			a.startPlayerLoop()
		})
	}()
}

func (a *PoseApp) onStopCamera() {
	a.stopBtn.Disable()
	a.captureBtn.Disable()
	a.stopPlayerLoop()

	go func() {
		a.Session.Stop()

		fyne.Do(func() {
			a.videoCanvas.Image = nil
			a.videoCanvas.Refresh()
			a.syncCameraButtons()
			a.setResults("Camera stopped.")
		})
	}()
}

func (a *PoseApp) onCapture() {
	a.captureBtn.Disable()

	go func() {
		res, err := a.Comparator.CaptureAndCompare(context.Background())

		fyne.Do(func() {
			a.syncCameraButtons()

			if err != nil {
				a.setResults("Error: " + err.Error())
				return
			}
			if res == nil {
				return
			}

			m := presenter.Render(*res)
			a.distanceLabel.SetText(m.Distance)
			a.detectedLabel.SetText(m.PoseDetected)
			a.accuracyLabel.SetText(m.Accuracy)
			a.qualityLabel.SetText(string(m.Quality))
			a.setResults(m.Message)
		})
	}()
}

func (a *PoseApp) onViewHistory() {
	a.viewBtn.Disable()

	go func() {
		table, err := a.Presenter.ViewHistory(context.Background())

		fyne.Do(func() {
			a.viewBtn.Enable()

			if err != nil {
				a.history = presenter.Table{}
				a.historyMessage.SetText("Error loading data: " + err.Error())
			} else {
				a.history = table
				if table.Empty() {
					a.historyMessage.SetText(table.Message)
				} else {
					a.historyMessage.SetText(table.Footer)
				}
			}

			a.historyTable.Refresh()
		})
	}()
}

func (a *PoseApp) onExport() {
	format, err := presenter.ParseFormat(a.formatSelect.Selected)
	if err != nil {
		dialog.ShowError(err, a.mainWin)
		return
	}

	a.exportBtn.Disable()

	go func() {
		art, err := a.Presenter.ExportHistory(context.Background(), format)

		fyne.Do(func() {
			a.exportBtn.Enable()

			switch {
			case errors.Is(err, presenter.ErrNoData):
				dialog.ShowInformation("Download", "No data available to download.", a.mainWin)
			case err != nil:
				dialog.ShowError(fmt.Errorf("error downloading data: %w", err), a.mainWin)
			default:
				a.saveArtifact(art)
			}
		})
	}()
}

func (a *PoseApp) saveArtifact(art presenter.Artifact) {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()

		if _, err := w.Write(art.Data); err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}

		a.Log.Info("export saved", zap.String("uri", w.URI().String()))
	}, a.mainWin)

	d.SetFileName(art.Name)
	d.Show()
}

// syncCameraButtons derives every camera control from the session state.
func (a *PoseApp) syncCameraButtons() {
	st := a.Session.State()

	setEnabled(a.startBtn, !st.Active && a.Session.CanStart())
	setEnabled(a.stopBtn, st.Active)
	setEnabled(a.captureBtn, st.Active)
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

func (a *PoseApp) setResults(msg string) {
	a.resultsLabel.SetText(msg)
}

func cameraErrorText(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Error accessing camera. Please ensure you have granted camera permissions."
	case errors.Is(err, capture.ErrNoDevice):
		return "No camera available: " + err.Error()
	case errors.Is(err, capture.ErrNoReference):
		return "Upload a reference pose before starting the camera."
	default:
		return "Error: " + err.Error()
	}
}

func (a *PoseApp) startPlayerLoop() {
	a.stopPlayerLoop()

	stop := make(chan struct{})
	a.stopPlayer = stop

	go a.runPlayerLoop(stop)
}

func (a *PoseApp) stopPlayerLoop() {
	if a.stopPlayer != nil {
		close(a.stopPlayer)
		a.stopPlayer = nil
	}
}

// runPlayerLoop repaints the live view from the session's latest frame.
func (a *PoseApp) runPlayerLoop(stop chan struct{}) {
	fps := a.Config.GetFPS()
	if fps == 0 {
		fps = 24
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			frame, ok := a.Session.Snapshot()
			if !ok {
				fyne.Do(func() {
					if a.stopPlayer == stop {
						a.stopPlayerLoop()
						a.videoCanvas.Image = nil
						a.videoCanvas.Refresh()
						a.syncCameraButtons()
						a.setResults("Camera stream ended.")
					}
				})
				return
			}

			fyne.Do(func() {
				a.videoCanvas.Image = frame
				a.videoCanvas.Refresh()
			})

		case <-stop:
			return
		}
	}
}

func (a *PoseApp) refreshSourceSettings(source config.SourceType) {
	a.sourceSettings.Objects = nil

	switch source {
	case config.SourceLocal:
		pathEntry := widget.NewEntry()
		pathEntry.SetPlaceHolder("/path/to/video.mp4")
		pathEntry.SetText(a.Config.GetLocalPath())
		pathEntry.OnChanged = a.Config.SetLocalPath

		fileBtn := widget.NewButtonWithIcon("Open File", theme.FolderOpenIcon(), func() {
			dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
				if err == nil && reader != nil {
					pathEntry.SetText(reader.URI().Path())
					reader.Close()
				}
			}, a.mainWin)
		})

		a.sourceSettings.Add(widget.NewLabel("Video Path:"))
		a.sourceSettings.Add(container.NewBorder(nil, nil, nil, fileBtn, pathEntry))

	case config.SourceWebcam:
		const loading = "Loading cameras..."

		deviceSelect := widget.NewSelect([]string{loading}, func(s string) {
			if s != loading {
				a.Config.SetDevice(s)
			}
		})
		deviceSelect.SetSelected(loading)
		deviceSelect.Disable()

		a.sourceSettings.Add(widget.NewLabel("Select Camera:"))
		a.sourceSettings.Add(deviceSelect)

		go func() {
			devices, err := capture.ListCameras()

			fyne.Do(func() {
				switch {
				case err != nil:
					a.Log.Warn("listing cameras failed", zap.Error(err))
					deviceSelect.Options = []string{"Error listing cameras"}
				case len(devices) == 0:
					deviceSelect.Options = []string{"No cameras found"}
				default:
					deviceSelect.Options = devices
					deviceSelect.Enable()

					if current := a.Config.GetDevice(); current != "" {
						deviceSelect.SetSelected(current)
					} else {
						deviceSelect.SetSelected(devices[0])
					}
				}
				deviceSelect.Refresh()
			})
		}()
	}

	a.sourceSettings.Refresh()
}
