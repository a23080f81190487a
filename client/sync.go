package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/hardware"
	"github.com/migasfree/migasfree-client/mtls"
	"github.com/migasfree/migasfree-client/pms"
	"github.com/migasfree/migasfree-client/shell"
	"github.com/migasfree/migasfree-client/transport"
)

// mtlsMinServerVersion is the first server release able to issue mTLS
// certificates.
var mtlsMinServerVersion = semver.MustParse("5.0.0")

type property struct {
	Prefix   string `json:"prefix"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

type faultDefinition struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Sync runs the full synchronization transaction against the server.
// Individual package-system failures are accumulated and reported; the
// transaction keeps going and the error surfaces at the end.
func (c *Client) Sync(ctx context.Context, forceUpgrade bool) error {
	if err := c.CheckSignKeys(ctx); err != nil {
		return err
	}

	startDate := time.Now().Format(time.RFC3339)
	c.say("Connecting to migasfree server...")

	c.maybeFetchMTLS(ctx)
	c.uploadOldErrors(ctx)
	c.runScriptsIn(ctx, c.Settings.PreSyncPath)

	if err := c.uploadAttributes(ctx); err != nil {
		return err
	}

	if err := c.uploadFaults(ctx); err != nil {
		return err
	}

	before, err := c.PMS.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "querying installed software")
	}

	history := softwareHistory(c.Settings.SoftwareFile, before)

	c.createRepositories(ctx)
	c.cleanPMSCache(ctx)
	c.mandatoryPackages(ctx)

	if c.Conf.Client.AutoUpdatePackages || forceUpgrade {
		c.updatePackages(ctx)
	}

	if err := c.uploadSoftware(ctx, before, history); err != nil {
		return err
	}

	if c.hardwareCaptureRequired(ctx) {
		c.updateHardwareInventory(ctx)
	}

	c.syncDevices(ctx)
	c.runScriptsIn(ctx, c.Settings.PostSyncPath)
	c.uploadExecutionErrors(ctx)

	if err := c.endSynchronization(ctx, startDate); err != nil {
		return err
	}

	if err := c.EOT(ctx); err != nil {
		return err
	}

	c.say("Completed operations")

	if !c.pmsOK {
		return errors.New("package operations failed during synchronization")
	}

	return nil
}

// maybeFetchMTLS provisions a client certificate automatically when
// the server is recent enough and none is installed yet.
func (c *Client) maybeFetchMTLS(ctx context.Context) {
	if mtls.HasCertificate(c.Settings) {
		return
	}

	version, ok := c.ServerVersion()
	if !ok || version.LT(mtlsMinServerVersion) {
		return
	}

	err := mtls.FetchAndInstall(ctx, c.Request, hardware.UUID(ctx), c.Conf.Client.Project, c.Settings)
	switch {
	case err == nil:
		c.say("mTLS certificate installed")
	case errors.Cause(err) == mtls.ErrNotAvailable:
		grip.Debug("server does not issue mTLS certificates")
	default:
		grip.Warning(message.WrapError(err, "could not provision mTLS certificate"))
	}
}

func (c *Client) uploadOldErrors(ctx context.Context) {
	description, ok := c.errors.Pending()
	if !ok {
		return
	}

	c.say("Uploading old errors...")

	id, err := c.ComputerID(ctx)
	if err != nil {
		grip.Warning(message.WrapError(err, "could not upload old errors"))

		return
	}

	payload := map[string]interface{}{"id": id, "description": description}
	if err := c.Request.Post(ctx, transport.EndpointUploadErrors, payload, nil); err != nil {
		grip.Warning(message.WrapError(err, "could not upload old errors"))

		return
	}

	c.errors.Clear()
}

// runScriptsIn executes every file in dir in name order. Failures are
// recorded but do not stop the transaction.
func (c *Client) runScriptsIn(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	for _, name := range names {
		script := filepath.Join(dir, name)
		c.say("Running %s...", script)

		if err := shell.RunInteractive(ctx, script); err != nil {
			c.fail(fmt.Sprintf("script %s failed: %v", script, err))
		}
	}
}

// evalCode executes one server-provided snippet, normalizing line
// endings first.
func (c *Client) evalCode(ctx context.Context, language, code string) shell.Result {
	code = strings.TrimSpace(strings.ReplaceAll(code, "\r", ""))

	return shell.RunCode(ctx, language, code)
}

func (c *Client) uploadAttributes(ctx context.Context) error {
	id, err := c.ComputerID(ctx)
	if err != nil {
		return err
	}

	c.say("Getting properties...")

	var properties []property
	if err := c.Request.Post(ctx, transport.EndpointProperties,
		map[string]interface{}{"id": id}, &properties); err != nil {
		return errors.Wrap(err, "getting properties")
	}

	c.say("Evaluating attributes...")

	attributes := map[string]string{}
	for _, item := range properties {
		res := c.evalCode(ctx, item.Language, item.Code)
		attributes[item.Prefix] = strings.TrimSpace(res.Stdout)

		if !res.OK || attributes[item.Prefix] == "" {
			c.fail(fmt.Sprintf("property %s without value: %s", item.Prefix, res.Stderr))
		}
	}

	hostname, _ := os.Hostname()
	userName, userFullname := syncUser(ctx)

	payload := map[string]interface{}{
		"id":              id,
		"uuid":            hardware.UUID(ctx),
		"name":            c.Conf.Client.ComputerName,
		"fqdn":            hostname,
		"ip_address":      collectNetwork().IP,
		"sync_user":       userName,
		"sync_fullname":   userFullname,
		"sync_attributes": attributes,
	}

	c.say("Uploading attributes...")

	return errors.Wrap(c.Request.Post(ctx, transport.EndpointUploadAttributes, payload, nil),
		"uploading attributes")
}

func (c *Client) uploadFaults(ctx context.Context) error {
	id, err := c.ComputerID(ctx)
	if err != nil {
		return err
	}

	c.say("Getting fault definitions...")

	var definitions []faultDefinition
	if err := c.Request.Post(ctx, transport.EndpointFaultDefinitions,
		map[string]interface{}{"id": id}, &definitions); err != nil {
		if transport.IsNotFound(err) {
			return nil
		}

		return errors.Wrap(err, "getting fault definitions")
	}

	if len(definitions) == 0 {
		return nil
	}

	c.say("Executing faults...")

	faults := map[string]string{}
	for _, item := range definitions {
		res := c.evalCode(ctx, item.Language, item.Code)
		output := strings.TrimSpace(res.Stdout)

		// only faults with output are reported
		if res.OK && output != "" {
			faults[item.Name] = output
		}
	}

	payload := map[string]interface{}{"id": id, "faults": faults}

	c.say("Uploading faults...")

	return errors.Wrap(c.Request.Post(ctx, transport.EndpointUploadFaults, payload, nil),
		"uploading faults")
}

func (c *Client) repositories(ctx context.Context) ([]pms.Repository, error) {
	id, err := c.ComputerID(ctx)
	if err != nil {
		return nil, err
	}

	c.say("Getting repositories...")

	var repos []pms.Repository
	if err := c.Request.Post(ctx, transport.EndpointRepositories,
		map[string]interface{}{"id": id}, &repos); err != nil {
		if transport.IsNotFound(err) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "getting repositories")
	}

	return repos, nil
}

func (c *Client) createRepositories(ctx context.Context) {
	repos, err := c.repositories(ctx)
	if err != nil {
		c.pmsOK = false
		c.fail(err.Error())

		return
	}

	c.say("Creating repositories...")

	server := c.Conf.Client.Server
	if cache := c.Conf.Client.PackageProxyCache; cache != "" {
		server = fmt.Sprintf("%s/%s", cache, server)
	}

	if err := c.PMS.CreateRepos(ctx, c.Request.Protocol(), server, repos); err != nil {
		c.pmsOK = false
		c.fail(fmt.Sprintf("error creating repositories: %v", err))
	}
}

func (c *Client) cleanPMSCache(ctx context.Context) {
	c.say("Getting repositories metadata...")

	if err := c.PMS.CleanAll(ctx); err != nil {
		c.fail(fmt.Sprintf("error getting repositories metadata: %v", err))
	}
}

type mandatoryActions struct {
	Install []string `json:"install"`
	Remove  []string `json:"remove"`
}

func (c *Client) mandatoryPackages(ctx context.Context) {
	id, err := c.ComputerID(ctx)
	if err != nil {
		c.fail(err.Error())

		return
	}

	c.say("Getting mandatory packages...")

	var mandatory mandatoryActions
	if err := c.Request.Post(ctx, transport.EndpointMandatoryPackages,
		map[string]interface{}{"id": id}, &mandatory); err != nil {
		if !transport.IsNotFound(err) {
			c.fail(errors.Wrap(err, "getting mandatory packages").Error())
		}

		return
	}

	if len(mandatory.Remove) > 0 {
		c.say("Uninstalling packages...")

		if err := c.PMS.RemoveSilent(ctx, mandatory.Remove); err != nil {
			c.pmsOK = false
			c.fail(fmt.Sprintf("error uninstalling packages: %v", err))
		}
	}

	if len(mandatory.Install) > 0 {
		c.installMandatory(ctx, mandatory.Install)
	}
}

func (c *Client) installMandatory(ctx context.Context, packages []string) bool {
	c.say("Installing mandatory packages...")

	if err := c.PMS.InstallSilent(ctx, packages); err != nil {
		c.pmsOK = false
		c.fail(fmt.Sprintf("error installing packages: %v", err))

		return false
	}

	return true
}

func (c *Client) updatePackages(ctx context.Context) {
	c.say("Updating packages...")

	if err := c.PMS.UpdateSilent(ctx); err != nil {
		c.pmsOK = false
		c.fail(fmt.Sprintf("error updating packages: %v", err))
	}
}

func (c *Client) uploadSoftware(ctx context.Context, before []string, history History) error {
	id, err := c.ComputerID(ctx)
	if err != nil {
		return err
	}

	after, err := c.PMS.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "querying installed software")
	}

	if err := writeSnapshot(c.Settings.SoftwareFile, after); err != nil {
		grip.Warning(message.WrapError(err, "could not persist software snapshot"))
	}

	history.merge(CompareLists(before, after))

	payload := map[string]interface{}{
		"id":        id,
		"inventory": after,
		"history":   history,
	}

	c.say("Uploading software...")

	return errors.Wrap(c.Request.Post(ctx, transport.EndpointUploadSoftware, payload, nil),
		"uploading software")
}

type hardwareRequired struct {
	Capture bool `json:"capture"`
}

func (c *Client) hardwareCaptureRequired(ctx context.Context) bool {
	id, err := c.ComputerID(ctx)
	if err != nil {
		return false
	}

	var response hardwareRequired
	if err := c.Request.Post(ctx, transport.EndpointHardwareRequired,
		map[string]interface{}{"id": id}, &response); err != nil {
		grip.Debug(message.WrapError(err, "hardware capture check failed"))

		return false
	}

	return response.Capture
}

func (c *Client) updateHardwareInventory(ctx context.Context) {
	id, err := c.ComputerID(ctx)
	if err != nil {
		c.fail(err.Error())

		return
	}

	c.say("Capturing hardware information...")

	inventory, err := hardware.Capture(ctx)
	if err != nil {
		c.fail(err.Error())

		return
	}

	c.say("Sending hardware information...")

	payload := map[string]interface{}{"id": id, "hardware": inventory}
	if err := c.Request.Post(ctx, transport.EndpointUploadHardware, payload, nil); err != nil {
		c.fail(errors.Wrap(err, "uploading hardware inventory").Error())
	}
}

type assignedDevices struct {
	Logical []struct {
		Packages []string `json:"packages"`
	} `json:"logical"`
	Default int `json:"default"`
}

// syncDevices installs the packages tied to assigned logical devices.
// Printer queue configuration itself is not managed here.
func (c *Client) syncDevices(ctx context.Context) {
	id, err := c.ComputerID(ctx)
	if err != nil {
		return
	}

	var devices assignedDevices
	if err := c.Request.Post(ctx, transport.EndpointDevices,
		map[string]interface{}{"id": id}, &devices); err != nil {
		if !transport.IsNotFound(err) {
			grip.Debug(message.WrapError(err, "getting devices"))
		}

		return
	}

	if len(devices.Logical) == 0 {
		return
	}

	if !c.Conf.Client.ManageDevices {
		c.fail("assigned device(s) but client does not manage devices")

		return
	}

	for _, device := range devices.Logical {
		if len(device.Packages) > 0 {
			if !c.installMandatory(ctx, device.Packages) {
				return
			}
		}
	}

	grip.Info("device packages installed; print queue configuration is delegated to the spooler")
}

func (c *Client) uploadExecutionErrors(ctx context.Context) {
	description, ok := c.errors.Pending()
	if !ok {
		return
	}

	c.say("Sending errors to server...")

	id, err := c.ComputerID(ctx)
	if err != nil {
		grip.Warning(message.WrapError(err, "could not upload execution errors"))

		return
	}

	payload := map[string]interface{}{"id": id, "description": description}
	if err := c.Request.Post(ctx, transport.EndpointUploadErrors, payload, nil); err != nil {
		grip.Warning(message.WrapError(err, "could not upload execution errors"))

		return
	}

	if !c.debug {
		c.errors.Clear()
	}
}

func (c *Client) endSynchronization(ctx context.Context, startDate string) error {
	id, err := c.ComputerID(ctx)
	if err != nil {
		return err
	}

	c.say("Ending synchronization...")

	payload := map[string]interface{}{
		"id":            id,
		"start_date":    startDate,
		"consumer":      Release(),
		"pms_status_ok": c.pmsOK,
	}

	return errors.Wrap(c.Request.Post(ctx, transport.EndpointUploadSync, payload, nil),
		"ending synchronization")
}
